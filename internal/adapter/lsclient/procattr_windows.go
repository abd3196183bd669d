package lsclient

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
