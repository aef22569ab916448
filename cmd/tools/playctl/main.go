// Command playctl controls a running playback server over HTTP or gRPC.
//
//	playctl [-addr http://localhost:8080] [-grpc localhost:50051] status|next|previous|reset|pause|play|rate N|frame N|sessions|watch
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/banshee-data/arplayback/internal/api"
	"github.com/banshee-data/arplayback/internal/rpc"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "playback HTTP API base URL")
	grpcAddr := flag.String("grpc", "", "use the gRPC API at this address instead of HTTP")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout (ignored by watch)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if args[0] != "watch" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	var err error
	if *grpcAddr != "" {
		err = runGRPC(ctx, *grpcAddr, args, os.Stdout)
	} else {
		err = runHTTP(ctx, api.NewClient(*addr, nil), args, os.Stdout)
	}
	if err != nil {
		log.Fatalf("playctl: %v", err)
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a value", args[0])
	}
	return strconv.Atoi(args[1])
}

func floatArg(args []string) (float64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a value", args[0])
	}
	return strconv.ParseFloat(args[1], 64)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runHTTP(ctx context.Context, c *api.Client, args []string, w io.Writer) error {
	var (
		out any
		err error
	)
	switch args[0] {
	case "status":
		out, err = c.Status(ctx)
	case "next":
		out, err = c.Next(ctx)
	case "previous":
		out, err = c.Previous(ctx)
	case "reset":
		out, err = c.Reset(ctx)
	case "pause":
		out, err = c.Pause(ctx)
	case "play":
		out, err = c.Play(ctx)
	case "rate":
		rate, perr := floatArg(args)
		if perr != nil {
			return perr
		}
		out, err = c.SetRate(ctx, rate)
	case "frame":
		index, perr := intArg(args)
		if perr != nil {
			return perr
		}
		out, err = c.Frame(ctx, index)
	case "sessions":
		out, err = c.Sessions(ctx, 0)
	case "watch":
		return fmt.Errorf("watch needs -grpc")
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(w, out)
}

func runGRPC(ctx context.Context, addr string, args []string, w io.Writer) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	return runRPC(ctx, rpc.NewClient(conn), args, w)
}

func runRPC(ctx context.Context, c *rpc.Client, args []string, w io.Writer) error {
	var (
		out any
		err error
	)
	switch args[0] {
	case "status":
		out, err = c.Status(ctx)
	case "next":
		out, err = c.Next(ctx)
	case "previous":
		out, err = c.Previous(ctx)
	case "reset":
		out, err = c.Reset(ctx)
	case "pause":
		out, err = c.Pause(ctx)
	case "play":
		out, err = c.Play(ctx)
	case "rate":
		rate, perr := floatArg(args)
		if perr != nil {
			return perr
		}
		out, err = c.SetRate(ctx, rate)
	case "frame":
		index, perr := intArg(args)
		if perr != nil {
			return perr
		}
		out, err = c.GetFrame(ctx, index)
	case "watch":
		stream, serr := c.WatchFrames(ctx)
		if serr != nil {
			return serr
		}
		for {
			st, rerr := stream.Recv()
			if rerr != nil {
				if ctx.Err() != nil {
					return nil
				}
				return rerr
			}
			fmt.Fprintf(w, "%s frame=%d t=%.3f %s\n", st.State, st.FrameIndex, st.Timestamp, st.Orientation)
		}
	case "sessions":
		return fmt.Errorf("sessions is only served over HTTP")
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(w, out)
}
