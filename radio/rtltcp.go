package radio

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

var dongleMagic = [...]byte{'R', 'T', 'L', '0'}

// RTLTCPConn contains dongle information and an embedded tcp connection to an rtl_tcp server.
type RTLTCPConn struct {
	*net.TCPConn
	Info DongleInfo
}

// DialRTLTCP connects to the rtl_tcp server at addr and reads the dongle
// header. The caller is responsible for closing the connection.
func DialRTLTCP(addr string, timeout time.Duration) (*RTLTCPConn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: error connecting to rtl_tcp: %v", ErrDeviceUnavailable, err)
	}
	sdr := &RTLTCPConn{TCPConn: c.(*net.TCPConn)}
	if timeout > 0 {
		sdr.SetReadDeadline(time.Now().Add(timeout))
		defer sdr.SetReadDeadline(time.Time{})
	}
	if err = binary.Read(sdr.TCPConn, binary.BigEndian, &sdr.Info); err != nil {
		sdr.Close()
		return nil, fmt.Errorf("%w: error getting dongle information: %v", ErrDeviceUnavailable, err)
	}
	if !sdr.Info.Valid() {
		sdr.Close()
		return nil, fmt.Errorf("%w: bad magic number: %q", ErrDeviceUnavailable, sdr.Info.Magic)
	}
	return sdr, nil
}

// DongleInfo is data pulled from the rtl_tcp server on connection.
type DongleInfo struct {
	Magic     [4]byte
	Tuner     uint32
	GainCount uint32 // Useful for setting gain by index
}

// Valid checks the received magic number matches the expected byte string 'RTL0'.
func (d DongleInfo) Valid() bool {
	return d.Magic == dongleMagic
}

type command struct {
	command   uint8
	Parameter uint32
}

// Command constants defined in rtl_tcp.c
const (
	centerFreq = iota + 1
	sampleRate
	tunerGainMode
	tunerGain
	freqCorrection
	tunerIfGain
	testMode
	agcMode
	directSampling
	offsetTuning
	rtlXtalFreq
	tunerXtalFreq
	gainByIndex
)

func (sdr *RTLTCPConn) do(cmd uint8, v uint32) error {
	if err := binary.Write(sdr.TCPConn, binary.BigEndian, command{cmd, v}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

// Set the center frequency in Hz.
func (sdr *RTLTCPConn) SetCenterFreq(freq uint32) error {
	return sdr.do(centerFreq, freq)
}

// Set the sample rate in Hz.
func (sdr *RTLTCPConn) SetSampleRate(rate uint32) error {
	return sdr.do(sampleRate, rate)
}

// Set gain in tenths of dB. (197 => 19.7dB)
func (sdr *RTLTCPConn) SetGain(gain uint32) error {
	return sdr.do(tunerGain, gain)
}

// Set the Tuner AGC, true to enable.
func (sdr *RTLTCPConn) SetGainMode(auto bool) error {
	if auto {
		return sdr.do(tunerGainMode, 0)
	}
	return sdr.do(tunerGainMode, 1)
}

// Set frequency correction in ppm. rtl_tcp reinterprets the parameter as signed.
func (sdr *RTLTCPConn) SetFreqCorrection(ppm int32) error {
	return sdr.do(freqCorrection, uint32(ppm))
}

// Set tuner intermediate frequency stage and gain.
func (sdr *RTLTCPConn) SetTunerIfGain(stage, gain uint16) error {
	return sdr.do(tunerIfGain, (uint32(stage)<<16)|uint32(gain))
}

// Set RTL AGC mode, true for enabled.
func (sdr *RTLTCPConn) SetAGCMode(state bool) error {
	if state {
		return sdr.do(agcMode, 1)
	}
	return sdr.do(agcMode, 0)
}
