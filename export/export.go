// Package export hands the latest moisture reading to other desktop
// programs: the clipboard and, optionally, a paste into the focused window.
package export

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"

	"garden-link/types"
)

var ErrNoSample = errors.New("export: no sample yet")

type Exporter struct {
	Paste bool

	writeClipboard func(string) error
	pasteKeys      func() error
}

func New(paste bool) *Exporter {
	return &Exporter{
		Paste:          paste,
		writeClipboard: clipboard.WriteAll,
		pasteKeys:      simulatePaste,
	}
}

// Format renders a reading as "<value>:<category>".
func Format(sample types.TelemetrySample, category types.Category) string {
	return fmt.Sprintf("%d:%s", sample.Value, category)
}

// Export copies the reading to the clipboard and pastes it when enabled.
// It returns the exported text.
func (e *Exporter) Export(sample types.TelemetrySample, category types.Category) (string, error) {
	text := Format(sample, category)
	if err := e.writeClipboard(text); err != nil {
		return "", fmt.Errorf("clipboard: %w", err)
	}
	if !e.Paste {
		return text, nil
	}
	if err := e.pasteKeys(); err != nil {
		return text, err
	}
	return text, nil
}

// simulatePaste presses Ctrl+V (Cmd+V on macOS) followed by Enter.
func simulatePaste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	kb.SetKeys(keybd_event.VK_V)

	// Linux needs a moment after creating the virtual device.
	time.Sleep(200 * time.Millisecond)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}

	kbEnter, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	kbEnter.SetKeys(keybd_event.VK_ENTER)
	if err := kbEnter.Launching(); err != nil {
		return fmt.Errorf("enter keystroke: %w", err)
	}
	return nil
}
