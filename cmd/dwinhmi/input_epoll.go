//go:build linux

package main

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// watchDevices multiplexes every encoder node on one goroutine. The rotary
// axis and the push button are usually separate evdev nodes (rotary-encoder
// and gpio-keys), so a failure names the role that stopped.
func watchDevices(devs []*inputDevice, events chan<- inputEvent, readErr chan<- error) {
	if len(devs) == 0 {
		readErr <- errors.New("no input devices provided")
		return
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	byFd := make(map[int32]*inputDevice, len(devs))
	for _, d := range devs {
		fd := int(d.f.Fd())
		byFd[int32(fd)] = d
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			readErr <- fmt.Errorf("watch %s: %w", d, err)
			return
		}
	}

	ready := make([]unix.EpollEvent, len(devs))
	for {
		n, err := unix.EpollWait(epfd, ready, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for _, r := range ready[:n] {
			d := byFd[r.Fd]
			if r.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- fmt.Errorf("%s went away", d)
				return
			}
			batch, err := d.read()
			if err != nil {
				readErr <- err
				return
			}
			for _, ev := range batch {
				events <- ev
			}
		}
	}
}
