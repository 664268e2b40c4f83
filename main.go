package main

import "github.com/shouni/promo-post-gen-go/cmd"

func main() {
	cmd.Execute()
}
