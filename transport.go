package crossfee

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/permadao/crossfee/schema"
	"github.com/segmentio/kafka-go"
)

const (
	EventTopic     = "crossfee_event"
	msgTopicPrefix = "crossfee_domain_"
	msgGroupId     = "crossfee"
)

// MsgTopic is the inbound topic of one domain endpoint.
func MsgTopic(domainId uint64) string {
	return fmt.Sprintf("%s%d", msgTopicPrefix, domainId)
}

// Transport delivers an envelope toward a destination domain,
// fire-and-forget. The channel is assumed at-least-once and authenticated;
// ordering only holds per (source, sender) nonce stream.
type Transport interface {
	Send(destDomainId uint64, env schema.Envelope) error
}

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	err := kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Value: body,
		},
	)
	return err
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

type KafkaTransport struct {
	uri string

	lock    sync.Mutex
	writers map[uint64]*KWriter
}

func NewKafkaTransport(uri string) *KafkaTransport {
	return &KafkaTransport{
		uri:     uri,
		writers: make(map[uint64]*KWriter),
	}
}

func (t *KafkaTransport) Send(destDomainId uint64, env schema.Envelope) error {
	kw, err := t.writer(destDomainId)
	if err != nil {
		return err
	}
	by, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return kw.Write(by)
}

func (t *KafkaTransport) writer(destDomainId uint64) (*KWriter, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if kw, ok := t.writers[destDomainId]; ok {
		return kw, nil
	}
	kw, err := NewKWriter(MsgTopic(destDomainId), t.uri)
	if err != nil {
		return nil, err
	}
	t.writers[destDomainId] = kw
	return kw, nil
}

// sendMessage stamps our identity and the next outbound nonce on a payload
// and hands it to the transport.
func (s *CrossFee) sendMessage(destDomainId uint64, payload []byte) error {
	if s.transport == nil {
		log.Debug("no transport configured, message dropped", "dest", destDomainId)
		return nil
	}
	nonce, err := s.store.NextOutboundNonce(destDomainId)
	if err != nil {
		return err
	}
	env := schema.Envelope{
		SourceDomainId: s.domainId,
		SourceAddress:  s.senderAddr,
		Nonce:          nonce,
		Payload:        payload,
	}
	return s.transport.Send(destDomainId, env)
}

// runTransport consumes this domain's inbound topic and feeds the inbox.
// Handler failures are parked by DispatchMessage, never surfaced to kafka.
func (s *CrossFee) runTransport() {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{s.kafkaUri},
		Topic:   MsgTopic(s.domainId),
		GroupID: msgGroupId,
	})
	defer r.Close()
	for {
		m, err := r.ReadMessage(context.Background())
		if err != nil {
			log.Error("read inbound message", "err", err)
			return
		}
		env := schema.Envelope{}
		if err := json.Unmarshal(m.Value, &env); err != nil {
			log.Warn("drop undecodable envelope", "err", err)
			continue
		}
		if err := s.DispatchMessage(env); err != nil {
			log.Warn("message rejected", "key", env.Key(), "err", err)
		}
	}
}

func (s *CrossFee) emitEvent(evType string, domainId uint64, amount, detail string) {
	if s.events == nil {
		return
	}
	ev := schema.Event{
		ID:        uuid.NewString(),
		Type:      evType,
		DomainId:  domainId,
		Amount:    amount,
		Detail:    detail,
		Timestamp: s.nowFn().Unix(),
	}
	by, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.events.Write(by); err != nil {
		log.Warn("emit event", "type", evType, "err", err)
	}
}
