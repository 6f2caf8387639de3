package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/mirror/internal/mirror"
)

func main() {
	mirror.NewApp("mirror").Run()
}
