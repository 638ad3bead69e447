package randutil

import (
	"math/rand"
	"time"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

var seeded = rand.New(rand.NewSource(time.Now().UnixNano()))

func Int63n() int64 {
	return seeded.Int63()
}

func Uint64n() uint64 {
	return seeded.Uint64()
}

func StringN(n int) string {
	s := make([]rune, n)
	for i := range s {
		s[i] = letters[seeded.Intn(len(letters))]
	}
	return string(s)
}
