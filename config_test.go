package ilink3_test

import (
	"testing"

	"github.com/jpietraszuk/ilink3"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := ilink3.NewConfig("S1", "F1", testUserKey())

	if cfg.SessionID != "S1" || cfg.FirmID != "F1" {
		t.Errorf("identity = (%q,%q), want (S1,F1)", cfg.SessionID, cfg.FirmID)
	}
	if cfg.KeepAliveIntervalMs != 10000 {
		t.Errorf("KeepAliveIntervalMs = %d, want 10000", cfg.KeepAliveIntervalMs)
	}
	if cfg.InitialSentSeqNo != 1 || cfg.InitialRecvSeqNo != 1 {
		t.Errorf("initial seq numbers = (%d,%d), want (1,1)", cfg.InitialSentSeqNo, cfg.InitialRecvSeqNo)
	}
	if cfg.RetransmitRequestMessageLimit != 1000 {
		t.Errorf("RetransmitRequestMessageLimit = %d, want 1000", cfg.RetransmitRequestMessageLimit)
	}
	if cfg.OnNotAppliedWrongUUID != ilink3.NotAppliedUUIDTerminate {
		t.Errorf("OnNotAppliedWrongUUID = %v, want NotAppliedUUIDTerminate", cfg.OnNotAppliedWrongUUID)
	}
	if cfg.ReEstablishLastSession {
		t.Error("ReEstablishLastSession = true, want false by default")
	}
	if cfg.Logger == nil {
		t.Error("Logger = nil, want a discarding default logger")
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := ilink3.NewConfig("S1", "F1", testUserKey(),
		ilink3.WithAccessKeyID("AK1"),
		ilink3.WithTradingSystem("GoBot", "1.0", "Acme"),
		ilink3.WithKeepAlive(250),
		ilink3.WithReEstablishLastSession(true),
		ilink3.WithInitialSequenceNumbers(7, 9),
		ilink3.WithRetransmitRequestMessageLimit(50),
		ilink3.WithOnNotAppliedWrongUUID(ilink3.NotAppliedUUIDIgnore),
	)

	if cfg.AccessKeyID != "AK1" {
		t.Errorf("AccessKeyID = %q, want AK1", cfg.AccessKeyID)
	}
	if cfg.TradingSystemName != "GoBot" || cfg.TradingSystemVersion != "1.0" || cfg.TradingSystemVendor != "Acme" {
		t.Errorf("trading system = (%q,%q,%q), want (GoBot,1.0,Acme)",
			cfg.TradingSystemName, cfg.TradingSystemVersion, cfg.TradingSystemVendor)
	}
	if cfg.KeepAliveIntervalMs != 250 {
		t.Errorf("KeepAliveIntervalMs = %d, want 250", cfg.KeepAliveIntervalMs)
	}
	if !cfg.ReEstablishLastSession {
		t.Error("ReEstablishLastSession = false, want true")
	}
	if cfg.InitialSentSeqNo != 7 || cfg.InitialRecvSeqNo != 9 {
		t.Errorf("initial seq numbers = (%d,%d), want (7,9)", cfg.InitialSentSeqNo, cfg.InitialRecvSeqNo)
	}
	if cfg.RetransmitRequestMessageLimit != 50 {
		t.Errorf("RetransmitRequestMessageLimit = %d, want 50", cfg.RetransmitRequestMessageLimit)
	}
	if cfg.OnNotAppliedWrongUUID != ilink3.NotAppliedUUIDIgnore {
		t.Errorf("OnNotAppliedWrongUUID = %v, want NotAppliedUUIDIgnore", cfg.OnNotAppliedWrongUUID)
	}
}

func TestWithHandlerInstallsHandler(t *testing.T) {
	h := &recordingHandler{}
	cfg := ilink3.NewConfig("S1", "F1", testUserKey(), ilink3.WithHandler(h))
	if cfg.Handler != h {
		t.Error("WithHandler did not install the given handler")
	}
}
