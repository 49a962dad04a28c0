// Command mock-exchange is a minimal iLink3 gateway counterpart: it
// negotiates, establishes, and echoes keepalive Sequence messages for
// exactly one session per websocket connection, enough to drive
// ilink3-demo end to end without a real exchange.
package main

import (
	"encoding/binary"
	"flag"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jpietraszuk/ilink3/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8181", "listen address")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws", wsHandler(log)).Methods(http.MethodGet)

	log.WithField("addr", *addr).Info("mock-exchange listening")
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.WithError(err).Fatal("listen failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func wsHandler(log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("upgrade failed")
			return
		}
		defer conn.Close()
		newExchangeSession(conn, log).run()
	}
}

type exchangeSession struct {
	conn *websocket.Conn
	log  *logrus.Logger

	uuid      uint64
	nextSeqNo uint64
}

func newExchangeSession(conn *websocket.Conn, log *logrus.Logger) *exchangeSession {
	return &exchangeSession{conn: conn, log: log, nextSeqNo: 1}
}

func (e *exchangeSession) run() {
	for {
		_, frame, err := e.conn.ReadMessage()
		if err != nil {
			e.log.WithError(err).Debug("client disconnected")
			return
		}
		if err := e.handle(frame); err != nil {
			e.log.WithError(err).Warn("failed to handle frame")
			return
		}
	}
}

// handle strips the client's gateway header and SOFH, decodes the SBE
// message, and replies. Replies to the client carry SOFH+SBE header only:
// the gateway envelope is a client-to-gateway multiplexing detail the
// gateway never echoes back.
func (e *exchangeSession) handle(frame []byte) error {
	if len(frame) < wire.GatewayHeaderLen+wire.SOFHLen {
		return nil
	}
	afterGateway := frame[wire.GatewayHeaderLen:]
	_, err := wire.ReadSOFH(afterGateway)
	if err != nil {
		return err
	}
	sbe := afterGateway[wire.SOFHLen:]
	header := wire.ReadHeader(sbe)
	payload := sbe[wire.SBEHeaderLen : wire.SBEHeaderLen+int(header.BlockLength)]

	switch header.TemplateID {
	case wire.TemplateNegotiate:
		neg := wire.DecodeNegotiate(payload)
		e.uuid = neg.UUID
		return e.sendNegotiationResponse(neg.UUID, neg.RequestTimestamp)
	case wire.TemplateEstablish:
		est := wire.DecodeEstablish(payload)
		return e.sendEstablishmentAck(est.UUID, est.RequestTimestamp, est.NextSeqNo)
	case wire.TemplateSequence:
		seq := wire.DecodeSequence(payload)
		if seq.KeepAliveLapsed == wire.Lapsed {
			return e.sendSequence(wire.NotLapsed)
		}
		return nil
	case wire.TemplateTerminate:
		term := wire.DecodeTerminate(payload)
		return e.sendTerminate(term.UUID, term.Reason, term.ErrorCodes)
	default:
		return nil
	}
}

func (e *exchangeSession) writeFrame(templateID uint16, blockLength uint16, encode func([]byte)) error {
	buf := make([]byte, wire.SOFHLen+wire.SBEHeaderLen+int(blockLength))
	wire.PutSOFH(buf, uint32(wire.SBEHeaderLen)+uint32(blockLength))
	wire.PutHeader(buf[wire.SOFHLen:], blockLength, templateID)
	encode(buf[wire.SOFHLen+wire.SBEHeaderLen:])
	return e.conn.WriteMessage(websocket.BinaryMessage, buf)
}

func (e *exchangeSession) sendNegotiationResponse(uuid uint64, requestTimestamp int64) error {
	return e.writeFrame(wire.TemplateNegotiationResp, wire.NegotiationResponseBlockLength, func(dst []byte) {
		binary.LittleEndian.PutUint64(dst[0:], uuid)
		binary.LittleEndian.PutUint64(dst[8:], uint64(requestTimestamp))
		binary.LittleEndian.PutUint64(dst[16:], 0)
	})
}

func (e *exchangeSession) sendEstablishmentAck(uuid uint64, requestTimestamp int64, nextSeqNo uint64) error {
	return e.writeFrame(wire.TemplateEstablishmentAck, wire.EstablishmentAckBlockLength, func(dst []byte) {
		binary.LittleEndian.PutUint64(dst[0:], uuid)
		binary.LittleEndian.PutUint64(dst[8:], uint64(requestTimestamp))
		binary.LittleEndian.PutUint64(dst[16:], nextSeqNo)
		binary.LittleEndian.PutUint64(dst[24:], 0)
		binary.LittleEndian.PutUint64(dst[32:], 0)
	})
}

func (e *exchangeSession) sendSequence(lapsed wire.KeepAliveLapsed) error {
	seq := &wire.Sequence{UUID: e.uuid, NextSeqNo: e.nextSeqNo, FaultToleranceIndicator: wire.FTIPrimary, KeepAliveLapsed: lapsed}
	e.nextSeqNo++
	return e.writeFrame(wire.TemplateSequence, wire.SequenceBlockLength, func(dst []byte) {
		wire.EncodeSequence(dst, seq)
	})
}

func (e *exchangeSession) sendTerminate(uuid uint64, reason string, errorCodes int32) error {
	term := &wire.Terminate{UUID: uuid, ErrorCodes: errorCodes, Reason: reason}
	return e.writeFrame(wire.TemplateTerminate, wire.TerminateBlockLength, func(dst []byte) {
		wire.EncodeTerminate(dst, term)
	})
}

