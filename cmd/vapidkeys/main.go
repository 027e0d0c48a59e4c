// Command vapidkeys prints a fresh VAPID key pair in .env format.
package main

import (
	"fmt"
	"log"

	"github.com/dukerupert/prometna/internal/push"
)

func main() {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		log.Fatalf("generate keys: %v", err)
	}
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", pub)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", priv)
}
