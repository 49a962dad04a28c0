// Command ilink3-demo dials a mock-exchange counterpart over websocket,
// negotiates and establishes an iLink3 session, and runs it until
// interrupted. On shutdown it logs the p99 of a latency histogram; no
// samples are recorded into that histogram, so the logged value is 0.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/jpietraszuk/ilink3"
	"github.com/jpietraszuk/ilink3/connector"
	"github.com/jpietraszuk/ilink3/internal/wire"
	"github.com/jpietraszuk/ilink3/transport/wstransport"
)

func main() {
	_ = godotenv.Load(".env")

	app := &cli.App{
		Name:  "ilink3-demo",
		Usage: "Run an iLink3 client session against a mock-exchange",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "exchange-url", Value: "ws://localhost:8181/ws", EnvVars: []string{"ILINK3_EXCHANGE_URL"}},
			&cli.StringFlag{Name: "session-id", Value: "S1", EnvVars: []string{"ILINK3_SESSION_ID"}},
			&cli.StringFlag{Name: "firm-id", Value: "F1", EnvVars: []string{"ILINK3_FIRM_ID"}},
			&cli.StringFlag{Name: "user-key", Value: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY", EnvVars: []string{"ILINK3_USER_KEY"}},
			&cli.IntFlag{Name: "keepalive-ms", Value: 1000},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	hist := hdrhistogram.New(1, int64(10*time.Second), 3)
	handler := &demoHandler{log: logger, hist: hist}

	cfg := ilink3.NewConfig(c.String("session-id"), c.String("firm-id"), c.String("user-key"),
		ilink3.WithKeepAlive(int32(c.Int("keepalive-ms"))),
		ilink3.WithHandler(handler),
		ilink3.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	offsets := wire.NewOffsetTable()

	dial := func(ctx context.Context) (connector.Link, uint64, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.String("exchange-url"), nil)
		if err != nil {
			return nil, 0, err
		}
		return wstransport.New(conn, 64), 1, nil
	}

	conn := connector.New(cfg, offsets, dial, connector.WithLogger(logger))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := conn.Run(ctx)
	logger.WithField("p99Us", hist.ValueAtQuantile(99)).Info("shutdown")
	return err
}

type demoHandler struct {
	log  *logrus.Logger
	hist *hdrhistogram.Histogram
}

func (h *demoHandler) OnBusinessMessage(templateID uint16, buffer []byte, offset, blockLength int, version uint16, possRetrans bool) {
	h.log.WithField("templateId", templateID).WithField("possRetrans", possRetrans).Debug("business message")
}

func (h *demoHandler) OnNotApplied(fromSeqNo uint64, msgCount int32, response *ilink3.NotAppliedResponse) {
	h.log.WithField("fromSeqNo", fromSeqNo).WithField("msgCount", msgCount).Warn("not applied")
	response.Retransmit()
}

func (h *demoHandler) OnRetransmitReject(reason string, requestTimestamp int64, errorCodes int32) {
	h.log.WithField("reason", reason).Warn("retransmit rejected")
}

func (h *demoHandler) OnSequence(uuid uint64, nextSeqNo uint64) {
	h.log.WithField("nextSeqNo", nextSeqNo).Debug("sequence")
}

func (h *demoHandler) OnError(err error) {
	h.log.WithError(err).Error("session error")
}

func (h *demoHandler) OnDisconnect(reason ilink3.DisconnectReason) {
	h.log.WithField("reason", reason.String()).Info("disconnected")
}
