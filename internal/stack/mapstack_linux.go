package stack

import "golang.org/x/sys/unix"

const mapStack = unix.MAP_STACK
