// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package dfu

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(n int) []byte {
	img := make([]byte, n)
	for i := range img {
		img[i] = byte(i * 31)
	}
	return img
}

func Test_BuildBlocks_roundTrip(t *testing.T) {
	lengths := []int{1, 4, 100, 233, 234, 235, 471, 472, 473, 500, 709, 710, 711, 1000, 10000}

	for _, n := range lengths {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			img := testImage(n)
			blocks, err := BuildBlocks(img, 0x0121)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(blocks), 3)

			// Header block: hardware id + 0xFF fill, full block size.
			header := blocks[0]
			assert.Equal(t, HeaderSeq, header.Seq)
			require.Len(t, header.Payload, BlockSize)
			assert.Equal(t, uint16(0x0121), binary.LittleEndian.Uint16(header.Payload))
			for _, b := range header.Payload[2:] {
				require.Equal(t, byte(0xFF), b)
			}

			// First data block starts with the total image length.
			first := blocks[1]
			assert.Equal(t, uint16(0x0001), first.Seq)
			require.GreaterOrEqual(t, len(first.Payload), 4)
			assert.Equal(t, uint32(n), binary.LittleEndian.Uint32(first.Payload))

			// Concatenating the data regions reproduces the image exactly.
			data := append([]byte(nil), first.Payload[4:]...)
			for _, blk := range blocks[2:] {
				data = append(data, blk.Payload...)
			}
			assert.Equal(t, img, data)

			// Sequence numbers: 0x0000, 0x0001, ..., k, then 0xFFFF.
			last := blocks[len(blocks)-1]
			assert.Equal(t, FinalSeq, last.Seq)
			for i, blk := range blocks[:len(blocks)-1] {
				assert.Equal(t, uint16(i), blk.Seq)
			}

			// Middle blocks are full sized.
			for _, blk := range blocks[2 : len(blocks)-1] {
				assert.Len(t, blk.Payload, BlockSize)
			}
			assert.Less(t, len(last.Payload), BlockSize)
		})
	}
}

func Test_BuildBlocks_scenarios(t *testing.T) {
	t.Run("image of 100 bytes fits block 1, terminal is empty", func(t *testing.T) {
		img := testImage(100)
		blocks, err := BuildBlocks(img, 0x0001)
		require.NoError(t, err)
		require.Len(t, blocks, 3)
		assert.Equal(t, img, blocks[1].Payload[4:])
		assert.Equal(t, FinalSeq, blocks[2].Seq)
		assert.Empty(t, blocks[2].Payload)
	})

	t.Run("image of 500 bytes leaves 28 for the terminal block", func(t *testing.T) {
		img := testImage(500)
		blocks, err := BuildBlocks(img, 0x0001)
		require.NoError(t, err)
		require.Len(t, blocks, 4)
		assert.Equal(t, img[:234], blocks[1].Payload[4:])
		assert.Equal(t, img[234:472], blocks[2].Payload)
		assert.Equal(t, img[472:], blocks[3].Payload)
		assert.Len(t, blocks[3].Payload, 28)
	})

	t.Run("remainder of exactly zero yields an empty terminal payload", func(t *testing.T) {
		// 234 + 238 consumed entirely by block 1 and one full chunk.
		img := testImage(234 + 238)
		blocks, err := BuildBlocks(img, 0x0001)
		require.NoError(t, err)
		require.Len(t, blocks, 4)
		assert.Len(t, blocks[2].Payload, BlockSize)
		assert.Empty(t, blocks[3].Payload)
	})
}

func Test_BuildBlocks_emptyImage(t *testing.T) {
	_, err := BuildBlocks(nil, 0x0001)
	assert.Error(t, err)
}

func Test_Block_Encode(t *testing.T) {
	blk := Block{Seq: 0x0102, Payload: []byte{0xAA, 0xBB}}
	assert.Equal(t, []byte{0x02, 0x01, 0xAA, 0xBB}, blk.Encode())
}
