package main

import (
	_ "embed"
)

// Tray icons, 32x32 PNG.
var (
	//go:embed icons/idle.png
	iconData []byte

	//go:embed icons/scanning.png
	iconDataScanning []byte

	//go:embed icons/paused.png
	iconDataPaused []byte

	//go:embed icons/error.png
	iconDataError []byte
)
