// matrix-route is a one-off tool to switch an MX44 HDMI matrix from the shell
// and print the routing table the unit reports back.
//
// Build (to dist/):
//   mkdir -p dist && go build -o dist/matrix-route ./cmd/matrix-route
//
// Usage:
//   go run ./cmd/matrix-route -host=192.168.0.2
//   go run ./cmd/matrix-route -host=192.168.0.2 -route=2:1,3:1
//   go run ./cmd/matrix-route -host=192.168.0.2 -all=4 -wait=3s
//
// Routes are output:input pairs. Without -route or -all it only queries status.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"mx44-utils/src/server/matrix"
	"mx44-utils/src/server/tcp"
)

type route struct {
	output, input int
}

func main() {
	host := flag.String("host", "192.168.0.2", "Matrix IP address")
	port := flag.Int("port", 23, "Matrix TCP port")
	routesFlag := flag.String("route", "", "Comma-separated output:input pairs (e.g. 1:2,3:4)")
	all := flag.Int("all", 0, "Route every output to this input")
	wait := flag.Duration("wait", 2*time.Second, "How long to collect responses")
	verbose := flag.Bool("v", false, "Log every response line")
	flag.Parse()

	spec := matrix.ModelTable[matrix.DefaultModel]
	routes, err := parseRoutes(*routesFlag, spec)
	if err != nil {
		log.Fatalf("route: %v", err)
	}
	if *all != 0 {
		if !spec.ValidInput(*all) {
			log.Fatalf("all: invalid input %d", *all)
		}
		routes = append(routes, route{output: matrix.BroadcastOutput, input: *all})
	}

	store := matrix.NewStore(spec)
	parser := matrix.NewParser()
	parser.LogResponses = *verbose

	connected := make(chan struct{})
	var connectOnce sync.Once
	data := make(chan []byte, 64)
	client := tcp.NewClient(*host, *port, time.Hour, tcp.Handler{
		OnStatus: func(status tcp.Status, err error) {
			if status == tcp.StatusConnected {
				connectOnce.Do(func() { close(connected) })
			}
			if err != nil {
				log.Printf("Network error: %v", err)
			}
		},
		OnData: func(chunk []byte) { data <- chunk },
	})
	client.Start()
	defer client.Close()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		log.Fatalf("connect %s: timed out", client.Addr())
	}

	for _, r := range routes {
		if err := client.Send(matrix.EncodeRoute(r.output, r.input)); err != nil {
			log.Fatalf("send: %v", err)
		}
	}
	if err := client.Send(matrix.EncodeStatusQuery()); err != nil {
		log.Fatalf("send: %v", err)
	}

	deadline := time.After(*wait)
	for collecting := true; collecting; {
		select {
		case chunk := <-data:
			for _, ev := range parser.Feed(chunk) {
				store.ApplyRoute(ev.Output, ev.Input)
			}
		case <-deadline:
			collecting = false
		}
	}

	printTable(store.Snapshot())
}

func parseRoutes(s string, spec matrix.PortSpec) ([]route, error) {
	var out []route
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		o, i, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q", p)
		}
		output, err := strconv.Atoi(o)
		if err != nil || output < 1 || output > spec.Outputs {
			return nil, fmt.Errorf("invalid output in %q", p)
		}
		input, err := strconv.Atoi(i)
		if err != nil || !spec.ValidInput(input) {
			return nil, fmt.Errorf("invalid input in %q", p)
		}
		out = append(out, route{output: output, input: input})
	}
	return out, nil
}

func printTable(snap matrix.Snapshot) {
	for o := 1; o <= snap.Outputs; o++ {
		fmt.Fprintf(os.Stdout, "OUT%d <- IN%d\n", o, snap.Routes[o])
	}
	for i := 1; i <= snap.Inputs; i++ {
		list := snap.OutputList(i)
		if list == "" {
			list = "-"
		}
		fmt.Fprintf(os.Stdout, "IN%d -> %s\n", i, list)
	}
}
