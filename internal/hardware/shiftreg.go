// ABOUTME: Shift-register LED driver over periph.io GPIO pins (data, clock, latch, optional enable)
// ABOUTME: Frames are clocked out last position first so position 0 lands on the first output

package hardware

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const pwmFrequency = 1 * physic.KiloHertz

// ShiftRegister drives a daisy chain of serial-in parallel-out registers.
type ShiftRegister struct {
	pins   Pins
	init   func() error
	lookup func(name string) gpio.PinIO

	data   gpio.PinIO
	clock  gpio.PinIO
	latch  gpio.PinIO
	enable gpio.PinIO
}

// NewShiftRegister returns an unopened driver for the named pins.
func NewShiftRegister(p Pins) *ShiftRegister {
	return &ShiftRegister{pins: p, init: initHost, lookup: gpioreg.ByName}
}

func initHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// Open initializes the host drivers and resolves every pin. On failure the
// pins already resolved are released, so Open may be retried.
func (s *ShiftRegister) Open() error {
	if err := s.init(); err != nil {
		return err
	}

	slots := []pinSlot{
		{s.pins.Data, &s.data},
		{s.pins.Clock, &s.clock},
		{s.pins.Latch, &s.latch},
	}
	if s.pins.Enable != "" {
		slots = append(slots, pinSlot{s.pins.Enable, &s.enable})
	}
	for _, slot := range slots {
		p, err := s.outputPin(slot.name)
		if err != nil {
			_ = s.Close()
			return err
		}
		*slot.dst = p
	}
	return nil
}

type pinSlot struct {
	name string
	dst  *gpio.PinIO
}

func (s *ShiftRegister) outputPin(name string) (gpio.PinIO, error) {
	p := s.lookup(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		_ = p.Halt()
		return nil, fmt.Errorf("gpio pin %s: %w", name, err)
	}
	return p, nil
}

// Write shifts the frame into the chain and latches it.
func (s *ShiftRegister) Write(frame []bool) error {
	if s.data == nil {
		return errors.New("shift register not open")
	}
	for i := len(frame) - 1; i >= 0; i-- {
		if err := s.data.Out(gpio.Level(frame[i])); err != nil {
			return fmt.Errorf("data pin: %w", err)
		}
		if err := pulse(s.clock); err != nil {
			return fmt.Errorf("clock pin: %w", err)
		}
	}
	if err := pulse(s.latch); err != nil {
		return fmt.Errorf("latch pin: %w", err)
	}
	return nil
}

func pulse(p gpio.PinIO) error {
	if err := p.Out(gpio.High); err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

// SetBrightness drives the active-low enable pin with PWM. Without an enable
// pin the panel is always at full brightness.
func (s *ShiftRegister) SetBrightness(b float64) error {
	if s.enable == nil {
		return nil
	}
	switch {
	case b >= 1:
		return s.enable.Out(gpio.Low)
	case b <= 0:
		return s.enable.Out(gpio.High)
	}
	duty := gpio.Duty(float64(gpio.DutyMax) * (1 - b))
	return s.enable.PWM(duty, pwmFrequency)
}

// Close turns the outputs off and releases the pins.
func (s *ShiftRegister) Close() error {
	var errs []error
	if s.enable != nil {
		errs = append(errs, s.enable.Out(gpio.High), s.enable.Halt())
	}
	for _, p := range []gpio.PinIO{s.data, s.clock, s.latch} {
		if p != nil {
			errs = append(errs, p.Out(gpio.Low), p.Halt())
		}
	}
	s.data, s.clock, s.latch, s.enable = nil, nil, nil, nil
	return errors.Join(errs...)
}
