package sim

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "sim: ", log.LstdFlags)
