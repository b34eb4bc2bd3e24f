package async

// An AsyncMailbox stores AsyncErrors and their associated callbacks
// and invokes them once the AsyncError is completed
//
// Often times we may spawn go routines in an event loop to do some concurrent work,
// go routines provide no way to return a response, however we may want
// to be notified if the work the go routine was doing completed successfully
// or unsuccessfully, and then take some action based on that result.
// AsyncMailbox provides a construct to do this.
//
// The below example is a flushPeers function, used by a table exchange to
// push a lock record's dirty query subtable to every peer that holds a
// dependent reference subtable. A flush round is considered durable once a
// majority of peers have acknowledged, and we want to kick off all the
// sends in parallel rather than wait on them one at a time.
//
//  func flushPeers(id SubTableId, peers []int) error {
//    acked := 0
//    returned := 0
//    mailbox := NewMailbox()
//
//    ackCallback := func (err error) {
//      if err == nil {
//        acked++
//      }
//      returned++
//    }
//
//    for _, peer := range peers {
//      go func(p int, rsp *AsyncError) {
//        rsp.SetValue(sendFlush(id, p))
//      }(peer, mailbox.NewAsyncError(ackCallback))
//    }
//
//    // Flush is durable once a majority of peers have acknowledged
//    for acked*2 < len(peers) && returned < len(peers) {
//       mailbox.ProcessMessages()
//    }
//
//    if acked*2 >= len(peers) {
//      return nil
//    } else {
//      return errors.New("Could Not Flush To Majority Of Peers")
//    }
//  }
//
//  // sendFlush delivers id's contents to peer p over the exchange transport.
//  func sendFlush(id SubTableId, peer int) error { ... }
//
// A Mailbox is not a concurrent structure and should only
// ever be accessed from a single go routine.  This ensures that the callbacks
// are always executed within the same context and only one at a time.
// A Mailbox for keeping track of in progress AsyncMessages.
// This structure is not thread-safe.
type Mailbox struct {
	msgs []message
}

// The function type of the callback invoked when an AsyncError is Completed
type AsyncErrorResponseHandler func(error)

// async message is a struct composed of an AsyncError
// and its associated callback
type message struct {
	Err      *AsyncError
	callback AsyncErrorResponseHandler
}

func newMessage(cb AsyncErrorResponseHandler) message {
	return message{
		Err:      newAsyncError(),
		callback: cb,
	}
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		msgs: make([]message, 0),
	}
}

func (bx *Mailbox) Count() int {
	return len(bx.msgs)
}

// Creates a NewAsyncError and associates the supplied callback with it.
// Once the AsyncError has been completed, SetValue called, the callback
// will be invoked on the next execution of ProcessMessages
func (bx *Mailbox) NewAsyncError(cb AsyncErrorResponseHandler) *AsyncError {
	msg := newMessage(cb)
	bx.msgs = append(bx.msgs, msg)
	return msg.Err
}

// Processes the mailbox.  For all messages with completed AsyncErrors
// the callback function and removes the message from the mailbox
func (bx *Mailbox) ProcessMessages() {
	var unCompletedMsgs []message
	for _, msg := range bx.msgs {
		ok, err := msg.Err.TryGetValue()

		// if a AsyncErr's value has been set, invoke the callback
		if ok {
			msg.callback(err)
		} else {
			unCompletedMsgs = append(unCompletedMsgs, msg)
		}
	}

	// reset inProgress messages to unCompletedMsgs only
	bx.msgs = unCompletedMsgs
}
