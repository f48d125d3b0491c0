package tui

import (
	"time"

	"github.com/runoshun/swarm-factory/internal/usecase"
)

// Msg is the sealed interface for all board messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgBoardLoaded is sent when a board load finishes.
type MsgBoardLoaded struct {
	Board *usecase.BoardOutput
	Err   error
	At    time.Time
}

func (MsgBoardLoaded) sealed() {}

// MsgTick triggers a periodic reload.
type MsgTick struct{}

func (MsgTick) sealed() {}
