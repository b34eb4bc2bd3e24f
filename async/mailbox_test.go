package async

import (
	"errors"
	log "github.com/sirupsen/logrus"
	"testing"
)

func Test_Mailbox(t *testing.T) {
	mailbox := NewMailbox()

	cbInvoked := false
	var retErr error

	asyncErr := mailbox.NewAsyncError(func(err error) {
		retErr = err
		cbInvoked = true
	})

	// spawn a go function that to do something
	// that sets the AsyncError value when
	// its completed
	go func(rsp *AsyncError) {
		sum := 0
		for i := 0; i < 100; i++ {
			sum = sum + i
		}
		rsp.SetValue(errors.New("Test Error!"))
	}(asyncErr)

	for !cbInvoked {
		mailbox.ProcessMessages()
	}
	if retErr == nil {
		t.Error("Expected Callback to be invoked with an error not nil")
	}
	if retErr.Error() != "Test Error!" {
		t.Error("Expected Callback to be invoked with `Test Error!` not: ", retErr.Error())
	}
}

// test to verify that example code for mailbox.go docs works!
func Test_MailboxExample(t *testing.T) {
	err := flushPeers_withMailbox(5, []int{1, 2, 3})
	if err != nil {
		t.Error("expected flush to a majority of peers to succeed")
	}
}

// example code for mailbox.go
func flushPeers_withMailbox(id int, peers []int) error {
	acked := 0
	returned := 0
	mailbox := NewMailbox()

	ackCallback := func(err error) {
		if err == nil {
			acked++
		}
		returned++
		log.Info("flushesReturned", returned)
	}

	for _, p := range peers {
		peer := p
		go func(rsp *AsyncError) {
			rsp.SetValue(sendFlush(id, peer))
		}(mailbox.NewAsyncError(ackCallback))
	}

	// Flush is durable once a majority of peers have acknowledged
	for acked*2 < len(peers) && returned < len(peers) {
		mailbox.ProcessMessages()
	}

	if acked*2 >= len(peers) {
		return nil
	} else {
		return errors.New("Could Not Flush To Majority Of Peers")
	}
}

// sendFlush delivers id's contents to peer over the exchange transport,
// dummy function that always succeeds
func sendFlush(id int, peer int) error {
	return nil
}
