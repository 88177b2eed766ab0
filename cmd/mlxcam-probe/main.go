// mlxcam-probe queries an MLX90640 thermal sensor over I²C and prints its
// identity and configuration registers.
package main

import (
	"flag"
	"fmt"
	"os"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

const (
	defaultAddr = 0x33

	regStatus   = 0x8000
	regControl1 = 0x800D
	eeSerial    = 0x2407 // three words
)

// readWord reads one big-endian 16-bit register.
func readWord(d *i2c.Dev, reg uint16) (uint16, error) {
	r := make([]byte, 2)
	if err := d.Tx([]byte{byte(reg >> 8), byte(reg)}, r); err != nil {
		return 0, fmt.Errorf("read register 0x%04x: %w", reg, err)
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}

// refreshHz decodes control register bits 7..9, 0.5 Hz through 64 Hz.
func refreshHz(control uint16) float64 {
	return 0.5 * float64(uint(1)<<((control>>7)&0x7))
}

// adcBits decodes control register bits 10..11, 16 through 19 bit.
func adcBits(control uint16) int {
	return 16 + int((control>>10)&0x3)
}

func pattern(control uint16) string {
	if control&(1<<12) != 0 {
		return "chess"
	}
	return "interleaved"
}

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	i2cHz := flag.Int("hz", 0, "I²C bus speed in Hz")
	addr := flag.Uint("addr", defaultAddr, "sensor address")
	flag.Parse()
	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*i2cName)
	if err != nil {
		return err
	}
	defer bus.Close()
	if *i2cHz != 0 {
		if err := bus.SetSpeed(physic.Frequency(*i2cHz) * physic.Hertz); err != nil {
			return err
		}
	}
	dev := &i2c.Dev{Bus: bus, Addr: uint16(*addr)}

	var serial [3]uint16
	for i := range serial {
		if serial[i], err = readWord(dev, eeSerial+uint16(i)); err != nil {
			return err
		}
	}
	control, err := readWord(dev, regControl1)
	if err != nil {
		return err
	}
	status, err := readWord(dev, regStatus)
	if err != nil {
		return err
	}

	fmt.Printf("Serial:           0x%04x%04x%04x\n", serial[0], serial[1], serial[2])
	fmt.Printf("Control (0x800D): 0x%04x\n", control)
	fmt.Printf("Refresh rate:     %g Hz\n", refreshHz(control))
	fmt.Printf("ADC resolution:   %d bit\n", adcBits(control))
	fmt.Printf("Reading pattern:  %s\n", pattern(control))
	fmt.Printf("Status (0x8000):  0x%04x\n", status)
	fmt.Printf("Last subpage:     %d\n", status&0x7)
	fmt.Printf("New data:         %t\n", status&(1<<3) != 0)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nmlxcam-probe: %s.\n", err)
		os.Exit(1)
	}
}
