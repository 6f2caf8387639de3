package cmd

import (
	"fmt"

	"github.com/kiosk404/mirror/pkg/version"
)

const bannerText = `
  __  __ _                     
 |  \/  (_)_ __ _ __ ___  _ __ 
 | |\/| | | '__| '__/ _ \| '__|
 | |  | | | |  | | | (_) | |   
 |_|  |_|_|_|  |_|  \___/|_|   

      Smart Mirror Dashboard
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n  Version: %s\n", bannerText, version.Get().String())
}
