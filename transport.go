package ilink3

// Transport is the reliable ordered messaging link the Session publishes
// on. It is supplied by the owning library; this package never dials,
// reads, or manages its lifecycle.
//
// TryClaim must not block. When the outbound buffer has no room it returns
// ErrBackPressure and the caller retries the identical send on the next
// Poll. Any other error is fatal and unwraps to *ClosedError where the
// transport can supply a reason.
type Transport interface {
	// TryClaim reserves a contiguous region of length bytes in the
	// transport's outbound buffer and returns a Claim over it.
	TryClaim(length int) (*Claim, error)
}

// Claim is a reserved, not-yet-published region of the transport's
// outbound buffer, in the same claim/commit discipline as a zero-copy ring
// buffer: the caller writes into Buffer() and then calls Commit exactly
// once to publish it.
type Claim struct {
	buf      []byte
	position int64
	commitFn func() error
}

// NewClaim constructs a Claim over buf, associated with the transport's
// assigned position and a commit callback. Transport implementations use
// this to satisfy TryClaim.
func NewClaim(buf []byte, position int64, commit func() error) *Claim {
	return &Claim{buf: buf, position: position, commitFn: commit}
}

// Buffer returns the writable region reserved by the claim.
func (c *Claim) Buffer() []byte { return c.buf }

// Position returns the transport-assigned sequence for this claim, valid
// once Commit succeeds.
func (c *Claim) Position() int64 { return c.position }

// Commit publishes the claimed region.
func (c *Claim) Commit() error { return c.commitFn() }
