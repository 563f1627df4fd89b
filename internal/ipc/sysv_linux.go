//go:build linux

package ipc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux glibc values for the SysV IPC control flags and the semctl
// SETVAL/GETVAL commands, defined here as plain ints for the raw
// semget/semop/semctl/msg* wrappers below (the shared-memory wrapper in
// sysv_shared_memory.go uses the unix.IPC_* constants directly).
const (
	ipcCreat  = 0o1000
	ipcExcl   = 0o2000
	ipcNoWait = 0o4000
	ipcRMID   = 0
	semSetVal = 16
	semGetVal = 12
)

type sembuf struct {
	SemNum uint16
	SemOp  int16
	SemFlg int16
}

func semget(key, nsems, flags int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(nsems), uintptr(flags))
	if errno != 0 {
		return 0, errno
	}
	return int(id), nil
}

func semop(id int, ops []sembuf) error {
	if len(ops) == 0 {
		return nil
	}
	_, _, errno := unix.Syscall(unix.SYS_SEMOP, uintptr(id), uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)))
	if errno != 0 {
		return errno
	}
	return nil
}

func semctlSetval(id, semnum, val int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(semnum), uintptr(semSetVal), uintptr(val), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func semctlGetval(id, semnum int) (int, error) {
	v, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(semnum), uintptr(semGetVal), 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(v), nil
}

func semctlRemove(id int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, ipcRMID, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// msgbuf mirrors struct msgbuf { long mtype; char mtext[N]; } for the
// fixed-shape CommandMessage payload: 8 bytes of recipient tag followed
// by 4 bytes of command id.
type msgbuf struct {
	mtype int64
	tag   int64
	cmd   int32
}

func msgget(key, flags int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_MSGGET, uintptr(key), uintptr(flags), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(id), nil
}

func msgsnd(id int, buf *msgbuf, flags int) error {
	size := unsafe.Sizeof(msgbuf{}) - unsafe.Sizeof(buf.mtype)
	_, _, errno := unix.Syscall6(unix.SYS_MSGSND, uintptr(id), uintptr(unsafe.Pointer(buf)), size, uintptr(flags), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func msgrcv(id int, buf *msgbuf, msgtype int, flags int) error {
	size := unsafe.Sizeof(msgbuf{}) - unsafe.Sizeof(buf.mtype)
	_, _, errno := unix.Syscall6(unix.SYS_MSGRCV, uintptr(id), uintptr(unsafe.Pointer(buf)), size, uintptr(msgtype), uintptr(flags), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func msgctlRemove(id int) error {
	_, _, errno := unix.Syscall6(unix.SYS_MSGCTL, uintptr(id), ipcRMID, 0, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
