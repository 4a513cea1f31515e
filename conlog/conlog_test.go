package conlog

import (
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeveloperGate(t *testing.T) {
	var got []string
	SetPrintf(func(f string, v ...interface{}) {
		got = append(got, fmt.Sprintf(f, v...))
	})
	defer SetPrintf(log.Printf)

	SetDeveloper(false)
	DPrintf("hidden %d", 1)
	Printf("shown %d", 2)
	SetDeveloper(true)
	DPrintf("dev %d", 3)
	SetDeveloper(false)
	SafePrintf("listing %d", 4)

	assert.Equal(t, []string{"shown 2", "dev 3", "listing 4"}, got)
}
