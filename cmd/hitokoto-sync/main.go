// Command hitokoto-sync keeps a key-value store of hitokoto sentences in
// step with a sentence bundle on disk, using two slots so readers never see
// a half-written corpus.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
