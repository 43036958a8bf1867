/*
 *  main.go
 *  cmd
 *
 *  Created by Haibao Tang on 03/20/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package main

import (
	"log"

	"github.com/op/go-logging"
	"github.com/tanghaibao/mlrho"
)

// main is the entrypoint for the entire program, routes to commands
func main() {
	logging.SetBackend(mlrho.BackendFormatter)
	err := mlrho.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
