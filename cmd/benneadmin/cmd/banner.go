package cmd

import (
	"fmt"
	"io"
)

const banner = `
  ___                          _       _
 | _ ) ___ _ _  _ _  ___ __ _ __| |_ __ (_)_ _
 | _ \/ -_) ' \| ' \/ -_) _' / _' | '  \| | ' \
 |___/\___|_||_|_||_\___\__,_\__,_|_|_|_|_|_||_|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m\n", banner)
	fmt.Fprintf(w, "\x1b[32m  Location Benne Occitanie admin - Version %s\x1b[0m\n\n", Version)
}
