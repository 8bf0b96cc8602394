package internal

import (
	"golang.org/x/sync/errgroup"
)

type DoneChan chan struct{}

type DoneFunc func() DoneChan

func wrapGroup(g *errgroup.Group) DoneChan {
	ret := make(DoneChan)
	go func() {
		g.Wait()
		close(ret)
	}()
	return ret
}

func Combine(first DoneChan, second DoneChan) DoneChan {
	ret := make(DoneChan)
	go func() {
		<-first
		<-second
		close(ret)
	}()
	return ret
}
