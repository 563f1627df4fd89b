//go:build linux

package ipc

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// SysvMessageQueue is the real Q backed by a SysV message queue, with
// messages typed by recipient_tag so msgrcv's mtype filter does the
// per-recipient addressing.
type SysvMessageQueue struct {
	id int
}

// CreateMessageQueue creates (destroying any pre-existing namesake
// queue) the queue at key.
func CreateMessageQueue(key int) (*SysvMessageQueue, error) {
	if existing, err := msgget(key, 0); err == nil {
		_ = msgctlRemove(existing)
	}
	id, err := msgget(key, ipcCreat|ipcExcl|defaultPerm)
	if err != nil {
		return nil, ErrResourceInit
	}
	return &SysvMessageQueue{id: id}, nil
}

// AttachMessageQueue attaches a non-owner process to an existing queue.
func AttachMessageQueue(key int) (*SysvMessageQueue, error) {
	id, err := msgget(key, 0)
	if err != nil {
		return nil, ErrResourceInit
	}
	return &SysvMessageQueue{id: id}, nil
}

// DestroyMessageQueue removes the queue at key entirely. Only the
// orchestrator calls this, on shutdown.
func DestroyMessageQueue(key int) error {
	id, err := msgget(key, 0)
	if err != nil {
		return nil // already gone
	}
	return msgctlRemove(id)
}

func (q *SysvMessageQueue) Send(msg domain.CommandMessage) error {
	tag := msg.RecipientTag
	if tag <= 0 {
		tag = 1 // mtype must be a positive long; the session-iteration
		// broadcast model (message.go) never relies on mtype 0/negative.
	}
	buf := &msgbuf{mtype: tag, tag: msg.RecipientTag, cmd: int32(msg.CommandID)}
	err := msgsnd(q.id, buf, ipcNoWait)
	if err == unix.EAGAIN {
		return ErrQueueFull
	}
	return err
}

func (q *SysvMessageQueue) RecvBlocking(me int64, cancel *CancelToken) (domain.CommandMessage, error) {
	mtype := me
	if mtype <= 0 {
		mtype = 1
	}
	for {
		if cancel != nil && cancel.Cancelled() {
			return domain.CommandMessage{}, ErrShuttingDown
		}
		buf := &msgbuf{}
		err := msgrcv(q.id, buf, int(mtype), ipcNoWait)
		if err == nil {
			return domain.CommandMessage{RecipientTag: buf.tag, CommandID: domain.CommandID(buf.cmd)}, nil
		}
		if err == unix.ENOMSG {
			time.Sleep(pollInterval)
			continue
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EIDRM {
			return domain.CommandMessage{}, ErrShuttingDown
		}
		return domain.CommandMessage{}, err
	}
}

func (q *SysvMessageQueue) RecvNonblocking(me int64) (domain.CommandMessage, bool, error) {
	mtype := me
	if mtype <= 0 {
		mtype = 1
	}
	buf := &msgbuf{}
	err := msgrcv(q.id, buf, int(mtype), ipcNoWait)
	if err == unix.ENOMSG {
		return domain.CommandMessage{}, false, nil
	}
	if err != nil {
		return domain.CommandMessage{}, false, err
	}
	return domain.CommandMessage{RecipientTag: buf.tag, CommandID: domain.CommandID(buf.cmd)}, true, nil
}

func (q *SysvMessageQueue) Close() error {
	return msgctlRemove(q.id)
}
