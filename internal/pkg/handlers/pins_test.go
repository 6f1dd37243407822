package handlers

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type routerPin struct {
	pins map[int]*gpiotest.Pin
}

func newRouterPin() *routerPin {
	return &routerPin{pins: map[int]*gpiotest.Pin{}}
}

func (p *routerPin) resolve(n int) (gpio.PinOut, error) {
	if n > 40 {
		return nil, errors.Errorf("no such line %d", n)
	}
	if _, ok := p.pins[n]; !ok {
		p.pins[n] = &gpiotest.Pin{N: "GPIO", Num: n}
	}
	return p.pins[n], nil
}
