package main

import (
	soti "github.com/umsats/soti/src"
)

func main() {
	soti.GenFramesMain()
}
