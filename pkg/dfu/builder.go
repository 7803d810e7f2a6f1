// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package dfu constructs the block sequence of a BraveJIG firmware transfer.
// It is the single framing authority: both router and module firmware
// updates route through BuildBlocks.
package dfu

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	// BlockSize is the data region size of every full transfer block.
	BlockSize = 238
	// FirstBlockDataSize is what fits beside the 4-byte image length in
	// block 0x0001.
	FirstBlockDataSize = BlockSize - 4

	// HeaderSeq is the hardware-id header block.
	HeaderSeq uint16 = 0x0000
	// FinalSeq terminates every transfer and carries the unconsumed
	// image remainder verbatim.
	FinalSeq uint16 = 0xFFFF

	// maxImageSize keeps the continuation sequence below the 0xFFFF
	// sentinel: header + first block + at most 0xFFFD full chunks.
	maxImageSize = FirstBlockDataSize + (0xFFFF-2)*BlockSize
)

// Block is one wire-ready transfer unit. Payload excludes the sequence
// number; the transmission path prepends it when framing the downlink.
type Block struct {
	Seq     uint16
	Payload []byte
}

// Encode renders the block as it rides inside a downlink data field:
// sequence number (2 bytes little-endian) followed by the payload.
func (b Block) Encode() []byte {
	out := make([]byte, 2+len(b.Payload))
	binary.LittleEndian.PutUint16(out, b.Seq)
	copy(out[2:], b.Payload)
	return out
}

// BuildBlocks turns a firmware image into its ordered transfer blocks:
//
//	seq 0x0000  hardware id (2 bytes) padded with 0xFF to the block size
//	seq 0x0001  total image length (4 bytes little-endian) + first 234 bytes
//	seq 0x0002… successive 238-byte chunks
//	seq 0xFFFF  the unconsumed remainder, verbatim
//
// The image's trailing CRC is part of the image bytes and is never stripped
// or duplicated. The terminal block is always emitted, with an empty payload
// when the image was consumed by the earlier blocks.
func BuildBlocks(image []byte, hardwareID uint16) ([]Block, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty firmware image")
	}
	if len(image) > maxImageSize {
		return nil, fmt.Errorf("firmware image of %d bytes exceeds the %d byte transfer limit", len(image), maxImageSize)
	}

	header := make([]byte, BlockSize)
	binary.LittleEndian.PutUint16(header, hardwareID)
	for i := 2; i < BlockSize; i++ {
		header[i] = 0xFF
	}

	first := make([]byte, 4, 4+FirstBlockDataSize)
	binary.LittleEndian.PutUint32(first, uint32(len(image)))
	consumed := len(image)
	if consumed > FirstBlockDataSize {
		consumed = FirstBlockDataSize
	}
	first = append(first, image[:consumed]...)

	blocks := []Block{
		{Seq: HeaderSeq, Payload: header},
		{Seq: 0x0001, Payload: first},
	}

	seq := uint16(0x0002)
	for len(image)-consumed >= BlockSize {
		blocks = append(blocks, Block{
			Seq:     seq,
			Payload: append([]byte(nil), image[consumed:consumed+BlockSize]...),
		})
		consumed += BlockSize
		seq++
	}

	blocks = append(blocks, Block{
		Seq:     FinalSeq,
		Payload: append([]byte(nil), image[consumed:]...),
	})
	return blocks, nil
}

// LoadImage reads and validates a firmware file. The final 4 bytes of a
// distributable image are its CRC and travel with the image untouched.
func LoadImage(path string) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware file: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("firmware file '%s' is empty", path)
	}
	if len(image) > maxImageSize {
		return nil, fmt.Errorf("firmware file '%s' is too large: %d bytes", path, len(image))
	}
	return image, nil
}
