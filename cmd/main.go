package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/permadao/crossfee"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "crossfee",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/crossfee?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.StringFlag{Name: "config_dsn", Value: "root@tcp(127.0.0.1:3306)/crossfee_config?charset=utf8mb4&parseTime=True&loc=Local", Usage: "config db dsn", EnvVars: []string{"CONFIG_DSN"}},

			&cli.Uint64Flag{Name: "domain_id", Value: 1, Usage: "this endpoint's domain id", EnvVars: []string{"DOMAIN_ID"}},
			&cli.BoolFlag{Name: "canonical", Value: false, Usage: "run as the canonical domain (hub)", EnvVars: []string{"CANONICAL"}},
			&cli.StringFlag{Name: "sender_addr", Value: "", Usage: "coordinator address stamped on outbound messages", EnvVars: []string{"SENDER_ADDR"}},
			&cli.StringFlag{Name: "kafka_uri", Value: "", Usage: "kafka broker uri, empty disables the message transport", EnvVars: []string{"KAFKA_URI"}},
			&cli.StringFlag{Name: "admin_key", Value: "", Usage: "api key for the admin surface", EnvVars: []string{"ADMIN_KEY"}},

			&cli.BoolFlag{Name: "use_s3", Value: false, Usage: "run with s3 store", EnvVars: []string{"USE_S3"}},
			&cli.StringFlag{Name: "s3_acc_key", Value: "", Usage: "s3 access key", EnvVars: []string{"S3_ACC_KEY"}},
			&cli.StringFlag{Name: "s3_secret_key", Value: "", Usage: "s3 secret key", EnvVars: []string{"S3_SECRET_KEY"}},
			&cli.StringFlag{Name: "s3_prefix", Value: "crossfee", Usage: "s3 bucket name prefix", EnvVars: []string{"S3_PREFIX"}},
			&cli.StringFlag{Name: "s3_region", Value: "ap-northeast-1", Usage: "s3 bucket region", EnvVars: []string{"S3_REGION"}},
			&cli.StringFlag{Name: "s3_endpoint", Value: "", Usage: "s3 compatible endpoint", EnvVars: []string{"S3_ENDPOINT"}},

			&cli.BoolFlag{Name: "use_aliyun", Value: false, Usage: "run with aliyun oss store", EnvVars: []string{"USE_ALIYUN"}},
			&cli.StringFlag{Name: "aliyun_endpoint", Value: "", EnvVars: []string{"ALIYUN_ENDPOINT"}},
			&cli.StringFlag{Name: "aliyun_acc_key", Value: "", EnvVars: []string{"ALIYUN_ACC_KEY"}},
			&cli.StringFlag{Name: "aliyun_secret_key", Value: "", EnvVars: []string{"ALIYUN_SECRET_KEY"}},
			&cli.StringFlag{Name: "aliyun_prefix", Value: "crossfee", EnvVars: []string{"ALIYUN_PREFIX"}},

			&cli.BoolFlag{Name: "use_mongodb", Value: false, Usage: "run with mongodb store", EnvVars: []string{"USE_MONGODB"}},
			&cli.StringFlag{Name: "mongo_uri", Value: "mongodb://localhost:27017", EnvVars: []string{"MONGO_URI"}},

			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	s := crossfee.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.String("config_dsn"),
		c.Uint64("domain_id"), c.Bool("canonical"), c.String("sender_addr"),
		c.String("kafka_uri"), c.String("admin_key"),
		c.Bool("use_s3"), c.String("s3_acc_key"), c.String("s3_secret_key"), c.String("s3_prefix"), c.String("s3_region"), c.String("s3_endpoint"),
		c.Bool("use_aliyun"), c.String("aliyun_endpoint"), c.String("aliyun_acc_key"), c.String("aliyun_secret_key"), c.String("aliyun_prefix"),
		c.Bool("use_mongodb"), c.String("mongo_uri"),
	)
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
