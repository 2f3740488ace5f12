package translate

import "github.com/Alia5/ezusb-shim/ezusb"

// Result is the normalized outcome of one dispatch. BytesReturned is only
// meaningful when HasBytes is set.
type Result struct {
	Status        ezusb.Status
	BytesReturned uint32
	HasBytes      bool
}

// OK reports whether the request succeeded.
func (r Result) OK() bool { return r.Status.OK() }

// Bytes returns the reported byte count and whether one was reported.
func (r Result) Bytes() (uint32, bool) { return r.BytesReturned, r.HasBytes }

func succeed() Result { return Result{Status: ezusb.StatusSuccess} }

func succeedWith(n uint32) Result {
	return Result{Status: ezusb.StatusSuccess, BytesReturned: n, HasBytes: true}
}

func fail(s ezusb.Status) Result { return Result{Status: s} }
