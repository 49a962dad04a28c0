package ilink3

import "github.com/eapache/queue"

// notAwaitingRetransmit is the NotAwaiting sentinel for
// Session.retransmitFillSeqNo. Sequence numbers are 1-based, so 0 never
// occurs as a real fill target.
const notAwaitingRetransmit uint64 = 0

type retransmitChunk struct {
	FromSeqNo uint64
	MsgCount  int32
}

// beginGapWorkflow is entered when a message or an EstablishmentAck
// reveals a gap: missingThroughInclusive is the last sequence number known
// to be missing, newNextRecvSeqNo is what nextRecvSeqNo becomes once the
// gap request (and its queued follow-up chunks) has been issued. It never
// mutates state before a send succeeds, so a back-pressured first request
// is safely retried.
func (s *Session) beginGapWorkflow(missingThroughInclusive, newNextRecvSeqNo uint64) (*Claim, error) {
	total := missingThroughInclusive - s.nextRecvSeqNo + 1
	limit := uint64(s.config.RetransmitRequestMessageLimit)

	if s.retransmitFillSeqNo != notAwaitingRetransmit {
		s.enqueueChunks(s.nextRecvSeqNo, total, limit)
		s.nextRecvSeqNo = newNextRecvSeqNo
		return nil, nil
	}

	msgCount := total
	if msgCount > limit {
		msgCount = limit
	}
	claim, err := s.sendRetransmitRequestMsg(s.nextRecvSeqNo, int32(msgCount))
	if err != nil {
		return nil, err
	}
	fromSeqNo := s.nextRecvSeqNo
	s.enqueueChunks(fromSeqNo+msgCount, total-msgCount, limit)
	s.retransmitFillSeqNo = fromSeqNo + msgCount - 1
	s.nextRecvSeqNo = newNextRecvSeqNo
	s.stats.GapsDetected.Add(1)
	return claim, nil
}

func (s *Session) enqueueChunks(start, total, limit uint64) {
	cur, remaining := start, total
	for remaining > 0 {
		n := remaining
		if n > limit {
			n = limit
		}
		s.retransmitQueue.Add(retransmitChunk{FromSeqNo: cur, MsgCount: int32(n)})
		cur += n
		remaining -= n
	}
}

// retransmitFilled advances the gap queue: the currently outstanding chunk
// finished (fully replayed, or rejected), so send the next queued chunk if
// any, otherwise clear retransmitFillSeqNo. On back-pressure the head
// chunk is left in place for the next poll.
func (s *Session) retransmitFilled() (*Claim, error) {
	if s.retransmitQueue.Length() == 0 {
		s.retransmitFillSeqNo = notAwaitingRetransmit
		return nil, nil
	}
	head := s.retransmitQueue.Peek().(retransmitChunk)
	claim, err := s.sendRetransmitRequestMsg(head.FromSeqNo, head.MsgCount)
	if err != nil {
		return nil, err
	}
	s.retransmitQueue.Remove()
	s.retransmitFillSeqNo = head.FromSeqNo + uint64(head.MsgCount) - 1
	return claim, nil
}

func newRetransmitQueue() *queue.Queue {
	return queue.New()
}
