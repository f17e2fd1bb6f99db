package transport

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/chemlogger/internal/errors"
)

type closeCounter struct {
	io.Reader
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func TestStream_ReadLine(t *testing.T) {
	s := NewStream(strings.NewReader("1,2,3\r\n4,5,6\n7,8,9"))

	want := []string{"1,2,3\r\n", "4,5,6\n", "7,8,9"}
	for i, w := range want {
		line, err := s.ReadLine()
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if string(line) != w {
			t.Errorf("line %d: expected %q, got %q", i, w, line)
		}
	}

	if _, err := s.ReadLine(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestStream_LinesAreIndependentCopies(t *testing.T) {
	s := NewStream(strings.NewReader("aaa\nbbb\n"))

	first, _ := s.ReadLine()
	second, _ := s.ReadLine()

	if string(first) != "aaa\n" || string(second) != "bbb\n" {
		t.Errorf("lines were overwritten: %q %q", first, second)
	}
}

func TestStream_LineTooLong(t *testing.T) {
	long := strings.Repeat("9", 64) + "\n1,2,3\n"
	s := NewStreamSize(strings.NewReader(long), 16)

	_, err := s.ReadLine()
	if !errors.Is(err, errors.ErrLineTooLong) || errors.IsTransportError(err) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}

	line, err := s.ReadLine()
	if err != nil || string(line) != "1,2,3\n" {
		t.Fatalf("expected the next record after an overlong line, got %q, %v", line, err)
	}
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	src := &closeCounter{Reader: strings.NewReader("1\n")}
	s := NewStream(src)

	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i, err)
		}
	}
	if src.closes != 1 {
		t.Errorf("expected underlying Close once, got %d", src.closes)
	}

	if _, err := s.ReadLine(); !errors.Is(err, errors.ErrTransportClosed) {
		t.Errorf("expected ErrTransportClosed after Close, got %v", err)
	}
}

func TestStream_CloseUnblocksRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	s := NewStream(pr)

	done := make(chan error, 1)
	go func() {
		_, err := s.ReadLine()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		if !errors.Is(err, errors.ErrTransportClosed) {
			t.Errorf("expected ErrTransportClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not return after Close")
	}
}

type fakePort struct {
	calls []string
}

func (p *fakePort) SetDTR(dtr bool) error {
	if dtr {
		p.calls = append(p.calls, "dtr-on")
	} else {
		p.calls = append(p.calls, "dtr-off")
	}
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.calls = append(p.calls, "flush")
	return nil
}

func TestResetDevice_Sequence(t *testing.T) {
	p := &fakePort{}
	var slept time.Duration

	err := resetDevice(p, time.Second, func(d time.Duration) {
		p.calls = append(p.calls, "sleep")
		slept = d
	})
	if err != nil {
		t.Fatalf("resetDevice: %v", err)
	}

	want := []string{"dtr-off", "sleep", "flush", "dtr-on"}
	if strings.Join(p.calls, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, p.calls)
	}
	if slept != time.Second {
		t.Errorf("expected 1s delay, got %v", slept)
	}
}

func TestSerialConfig_Validate(t *testing.T) {
	if err := DefaultSerialConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}

	cfg := DefaultSerialConfig()
	cfg.Port = ""
	cfg.BaudRate = 0
	cfg.DataBits = 9
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verrs *errors.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs.Errors) != 3 {
		t.Errorf("expected 3 validation errors, got %v", err)
	}
}
