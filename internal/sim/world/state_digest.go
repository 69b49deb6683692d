package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"colonysim.ai/internal/sim/transfer"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func (w *World) stateDigest(step uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, step)
	digestWriteU64(h, &tmp, w.movedTotal)
	digestWriteU64(h, &tmp, w.movesTotal)

	for _, s := range w.sortedStructures() {
		digestWriteString(h, &tmp, s.ID)
		digestWriteString(h, &tmp, s.Kind.String())
		digestWriteString(h, &tmp, string(s.Role))
		digestWritePos(h, &tmp, s.Pos)
		digestWriteI64(h, &tmp, int64(s.Capacity))
		digestWriteI64(h, &tmp, int64(s.Cooldown))
		digestWriteStore(h, &tmp, s.Store)
	}
	for _, hl := range w.sortedHaulers() {
		digestWriteString(h, &tmp, hl.ID)
		digestWritePos(h, &tmp, hl.pos)
		digestWriteStore(h, &tmp, hl.cargo)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

// digestWriteString is length-prefixed so adjacent fields cannot collide.
func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestWritePos(h hashWriter, tmp *[8]byte, p transfer.Position) {
	digestWriteString(h, tmp, string(p.Room))
	digestWriteI64(h, tmp, int64(p.X))
	digestWriteI64(h, tmp, int64(p.Y))
}

func digestWriteStore(h hashWriter, tmp *[8]byte, m map[transfer.Resource]int) {
	keys := sortedKeys(m)
	n := 0
	for _, k := range keys {
		if m[k] != 0 {
			n++
		}
	}
	digestWriteU64(h, tmp, uint64(n))
	for _, k := range keys {
		if m[k] == 0 {
			continue
		}
		digestWriteString(h, tmp, string(k))
		digestWriteI64(h, tmp, int64(m[k]))
	}
}
