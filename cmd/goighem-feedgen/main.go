// goighem-feedgen publishes a single change message to the broadcast feed.
// Handy for exercising the debounced resync path without a second client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"goighem/internal/config"
	"goighem/internal/feed"
	"goighem/internal/log"
)

func main() {
	_ = godotenv.Load()

	var (
		table  = flag.String("table", "expenses", "changed table name")
		record = flag.String("record", "", "changed record id")
		action = flag.String("action", feed.ActionUpdate, "insert, update or delete")
		actor  = flag.String("actor", "feedgen", "actor id stamped on the message")
		count  = flag.Int("count", 1, "number of messages to publish")
		delay  = flag.Duration("delay", 50*time.Millisecond, "pause between messages")
	)
	flag.Parse()

	switch *action {
	case feed.ActionInsert, feed.ActionUpdate, feed.ActionDelete:
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(2)
	}

	logger := log.Setup(log.ComponentFeed)
	cfg := config.Load()
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	client, err := feed.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", logger)
	if err != nil {
		logger.Error("connect to broker", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	for i := 0; i < *count; i++ {
		msg := feed.NewChangeMessage(*table, *record, *action, *actor)
		if err := client.PublishChange(ctx, msg); err != nil {
			logger.Error("publish failed", log.FieldError, err.Error())
			os.Exit(1)
		}
		logger.Info("published change", log.FieldTable, *table, "action", *action)
		if i < *count-1 {
			time.Sleep(*delay)
		}
	}
}
