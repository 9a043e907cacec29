// Command osmwaterqa inspects OpenStreetMap waterway data for topology
// and tagging errors and can pull a bounding-box extract to feed it.
package main

import "github.com/MeKo-Tech/osmwaterqa/internal/cmd"

func main() {
	cmd.Execute()
}
