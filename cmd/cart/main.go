package main

import "gomarketplace/internal/app/cartApp"

func main() {
	cartApp.Run()
}
