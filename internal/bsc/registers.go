// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bsc

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
)

// Broadcom Serial Controller (slave) register offsets, word-addressed. The
// layout matches the BSC-slave block documented for the BCM283x family
// (the same silicon block periph.io/x/periph/host/bcm283x pokes for DMA and
// other peripherals, see that package's register-constant style).
const (
	regDR   = 0x00 // Data FIFO, read drains a received byte, write queues a byte to send.
	regRSR  = 0x04 // Receive status: bit0 data ready, bit1 fifo overrun.
	regSLV  = 0x08 // Own slave address.
	regCR   = 0x0c // Control: bit0 enable, bit1 receive enable, bit9 i2c mode.
	regFR   = 0x10 // Flags: bit0 rx fifo empty, bit1 rx fifo full.
	peripheralSize = 0x40
)

const (
	crEnable     uint32 = 1 << 0
	crRxEnable   uint32 = 1 << 1
	crI2CMode    uint32 = 1 << 9
	frRxFIFOEmpty uint32 = 1 << 0
)

// registers is a memory-mapped window over the BSC peripheral's register
// block.
type registers struct {
	f   *os.File
	mem []byte
}

func mapRegisters(memPath string) (*registers, error) {
	f, err := os.OpenFile(memPath, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("bsc: open %s: %w", memPath, err)
	}
	mem, err := syscall.Mmap(int(f.Fd()), 0, peripheralSize, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bsc: mmap %s: %w", memPath, err)
	}
	return &registers{f: f, mem: mem}, nil
}

func (r *registers) read(off int) uint32 {
	return binary.LittleEndian.Uint32(r.mem[off : off+4])
}

func (r *registers) write(off int, v uint32) {
	binary.LittleEndian.PutUint32(r.mem[off:off+4], v)
}

func (r *registers) setSlaveAddress(address byte) {
	r.write(regSLV, uint32(address))
}

func (r *registers) enable() {
	r.write(regCR, crEnable|crRxEnable|crI2CMode)
}

func (r *registers) disable() {
	r.write(regCR, 0)
}

// drain reads out whatever bytes are currently sitting in the receive FIFO.
// It returns n==0 on a spurious wake (nothing to read).
func (r *registers) drain() (int, []byte) {
	if r.read(regFR)&frRxFIFOEmpty != 0 {
		return 0, nil
	}
	var data []byte
	for r.read(regFR)&frRxFIFOEmpty == 0 {
		data = append(data, byte(r.read(regDR)))
		if len(data) > 256 {
			break // defensive: the FIFO contract guarantees a frame fits a burst.
		}
	}
	return len(data), data
}

func (r *registers) close() error {
	if err := syscall.Munmap(r.mem); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
