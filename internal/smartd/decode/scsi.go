// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package decode

import "fmt"

// SCSIIEPageRaw is the raw Informational Exceptions log page (0x2f) as
// returned by the transport façade's log-sense.
type SCSIIEPageRaw struct {
	ASC            uint8
	ASCQ           uint8
	CurrentTemp    int8
	TripTemp       int8
	TemperatureSet bool
}

// SCSIHealthClass classifies the decoded IE page.
type SCSIHealthClass int

const (
	SCSIHealthOK SCSIHealthClass = iota
	SCSIHealthNotSMART
	SCSIHealthSelfTestInProgress
	SCSIHealthFailure
)

// SCSIHealth is the decoded, interpreted IE page.
type SCSIHealth struct {
	Class       SCSIHealthClass
	Message     string
	Temperature int8
	TripTemp    int8
}

// DecodeIEPageBytes decodes the transport façade's informational-exceptions
// page buffer: ASC at offset 0, ASCQ at offset 1. Backends that cannot
// surface a temperature reading in the same page leave CurrentTemp/TripTemp
// zeroed and TemperatureSet false.
func DecodeIEPageBytes(raw []byte) SCSIIEPageRaw {
	var r SCSIIEPageRaw
	if len(raw) > 0 {
		r.ASC = raw[0]
	}
	if len(raw) > 1 {
		r.ASCQ = raw[1]
	}
	return r
}

// DecodeTemperatureLogBytes decodes the transport façade's temperature-log
// buffer: current temperature (signed Celsius) at offset 0.
func DecodeTemperatureLogBytes(raw []byte) (current int8, ok bool) {
	if len(raw) == 0 {
		return 0, false
	}
	return int8(raw[0]), true
}

// DecodeIEPage decodes a raw SCSI Informational Exceptions page:
// asc=4,ascq=9 means "self-test in progress", any other non-zero
// asc/ascq is a SMART failure, and a page absent of ASC support reports
// "non-SMART".
func DecodeIEPage(raw SCSIIEPageRaw, smartSupported bool) SCSIHealth {
	h := SCSIHealth{Temperature: raw.CurrentTemp, TripTemp: raw.TripTemp}
	if !smartSupported {
		h.Class = SCSIHealthNotSMART
		h.Message = "device does not support SMART"
		return h
	}
	switch {
	case raw.ASC == 0 && raw.ASCQ == 0:
		h.Class = SCSIHealthOK
		h.Message = "no informational exception reported"
	case raw.ASC == 0x04 && raw.ASCQ == 0x09:
		h.Class = SCSIHealthSelfTestInProgress
		h.Message = "self-test in progress"
	default:
		h.Class = SCSIHealthFailure
		h.Message = fmt.Sprintf("ASC=0x%02x, ASCQ=0x%02x", raw.ASC, raw.ASCQ)
	}
	return h
}

// SCSIErrorCounterGroup is one read/write/verify error-counter group of the
// SCSI log-sense error counter pages.
type SCSIErrorCounterGroup struct {
	CorrectionAlgorithmInvocations int64
	ErrorsCorrectedByECCFast       int64
	ErrorsCorrectedByECCDelayed    int64
	ErrorsCorrectedByRereads       int64
	TotalErrorsCorrected           int64
	TotalUncorrectedErrors         int64
	GigabytesProcessed             float64
}

// SCSIErrorCounterLog groups the three log-sense error-counter pages
// smartd reads (read, write, verify) plus the non-medium-error count.
type SCSIErrorCounterLog struct {
	Read              SCSIErrorCounterGroup
	Write             SCSIErrorCounterGroup
	Verify            SCSIErrorCounterGroup
	NonMediumErrors   int64
}
