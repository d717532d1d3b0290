package probe

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/config"
	"github.com/f1grid/livetiming-ingest-go/pkg/livetiming"
)

var maxDuration time.Duration

// NewProbeCmd creates the diagnostic command: connect to the feed,
// pretty-print every decoded frame, close after a fixed duration.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "connects to the live timing feed and prints decoded frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe()
		},
	}
	cmd.Flags().DurationVar(&maxDuration,
		"max-duration",
		2*time.Minute,
		"automatically close the connection after this duration")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules for the console logger")
	return cmd
}

func runProbe() error {
	logger := log.DevLogger(os.Stderr, log.DebugLevel, config.LogFilter)
	log.ResetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, maxDuration)
	defer cancel()

	negotiator := livetiming.NewNegotiator(config.NegotiateURL)
	res, err := negotiator.Negotiate(ctx)
	if err != nil {
		return err
	}

	client := livetiming.NewClient(config.ConnectionURL)
	go client.Run(ctx, res)

	for frame := range client.Frames() {
		printFrame(frame)
	}
	if ctx.Err() != nil {
		log.Info("probe finished")
		return nil
	}
	select {
	case err := <-client.Done():
		return err
	default:
		return nil
	}
}

func printFrame(frame livetiming.Frame) {
	switch f := frame.(type) {
	case livetiming.HandshakeAck:
		fmt.Println("--- handshake complete")
	case livetiming.Ping:
		fmt.Println("--- ping")
	case livetiming.Snapshot:
		for _, topic := range f.Order {
			fmt.Printf("=== snapshot %s\n%s\n", topic, prettyJSON(f.Result[topic]))
		}
	case livetiming.Update:
		fmt.Printf("--- update %s (%s)\n%s\n",
			f.Topic, f.Timestamp, prettyJSON(f.Payload))
	}
}

func prettyJSON(raw []byte) string {
	data, err := oj.Parse(raw)
	if err != nil {
		return string(raw)
	}
	return oj.JSON(data, 2)
}
