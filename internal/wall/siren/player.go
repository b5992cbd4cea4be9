package siren

import (
	"fmt"
	"io"
	"os/exec"
)

// BellPlayer rings the terminal bell.
type BellPlayer struct {
	W io.Writer
}

func (p BellPlayer) Play() error {
	_, err := io.WriteString(p.W, "\a")
	return err
}

// CommandPlayer shells out to a configured player command, e.g.
// "paplay /usr/share/sounds/siren.ogg".
type CommandPlayer struct {
	Command string
}

func (p CommandPlayer) Play() error {
	if p.Command == "" {
		return nil
	}
	if err := exec.Command("sh", "-c", p.Command).Run(); err != nil {
		return fmt.Errorf("running siren command: %w", err)
	}
	return nil
}
