// Async provides tools for asynchronous callback processing using Goroutines
package async

// A Runner is a helper class to spawn Go Routines to run
// functions and to associate callbacks with them. This builds
// ontop of Mailbox to simplify the code that needs to be written.
//
// The below example issues a load-balance request to a set of peers and
// waits until every peer has replied before returning.
//
//	func collectLoadBalanceReplies(peers []int) error {
//	  returned := 0
//
//	  runner := NewRunner()
//
//	  onReply := func(err error) {
//	    returned++
//	  }
//
//	  for _, p := range peers {
//	    peer := p
//	    runner.RunAsync(func() error { return requestLoad(peer) }, onReply)
//	  }
//
//	  for returned < len(peers) {
//	    runner.ProcessMessages()
//	  }
//
//	  return nil
//	}
//
//	// requestLoad asks peer for its current queue depth over the exchange transport.
//	func requestLoad(peer int) error { ... }
type Runner struct {
	bx *Mailbox
}

func NewRunner() Runner {
	return Runner{
		bx: NewMailbox(),
	}
}

func (r *Runner) NumRunning() int {
	return r.bx.Count()
}

// RunAsync creates a go routine to run the specified function f.
// The callback, cb, is invoked once f is completed by calling ProcessMessages.
func (r *Runner) RunAsync(f func() error, cb AsyncErrorResponseHandler) {
	asyncErr := r.bx.NewAsyncError(cb)
	go func(rsp *AsyncError) {
		err := f()
		rsp.SetValue(err)
	}(asyncErr)
}

// Invokes all callbacks of completed asyncfunctions.
// Callbacks are ran synchronously and by the calling go routine
func (r *Runner) ProcessMessages() {
	r.bx.ProcessMessages()
}
