// bpsign prints Binance Pay signature headers for a webhook body, for
// replaying notifications against a local server.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"krostyshop/internal/provider/binance"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("usage: bpsign <body.json | ->")
		os.Exit(1)
	}

	_ = godotenv.Load(".env")
	v := viper.New()
	v.AutomaticEnv()
	secret := v.GetString("BINANCE_SECRET_KEY")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "BINANCE_SECRET_KEY is not set")
		os.Exit(1)
	}

	var (
		body []byte
		err  error
	)
	if os.Args[1] == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(os.Args[1])
	}
	if err != nil {
		panic(err)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	fmt.Printf("%s: %s\n", binance.HeaderTimestamp, ts)
	fmt.Printf("%s: %s\n", binance.HeaderNonce, nonce)
	fmt.Printf("%s: %s\n", binance.HeaderSignature, binance.Sign([]byte(secret), ts, nonce, body))
}
