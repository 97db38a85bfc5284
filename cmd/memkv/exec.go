package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

func execCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Send one command to a running server and print the reply",
		ArgsUsage: "COMMAND [ARG...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "server address",
				EnvVars: []string{"MEMKV_ADDR"},
				Value:   "127.0.0.1:8080",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("exec: missing command", 2)
			}
			args := make([]interface{}, c.NArg())
			for i, a := range c.Args().Slice() {
				args[i] = a
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()
			return execute(ctx, c.App.Writer, c.String("addr"), args)
		},
	}
}

// execute sends args as one command and prints the reply in redis-cli style
func execute(ctx context.Context, w io.Writer, addr string, args []interface{}) error {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		DisableIdentity: true,
		MaxRetries:      -1,
	})
	defer client.Close()

	res, err := client.Do(ctx, args...).Result()
	switch {
	case errors.Is(err, redis.Nil):
		_, err = fmt.Fprintln(w, "(nil)")
		return err
	case err != nil:
		var rerr redis.Error
		if errors.As(err, &rerr) {
			fmt.Fprintf(w, "(error) %s\n", rerr.Error())
			return cli.Exit("", 1)
		}
		return err
	}

	switch v := res.(type) {
	case int64:
		_, err = fmt.Fprintf(w, "(integer) %d\n", v)
	default:
		_, err = fmt.Fprintln(w, v)
	}
	return err
}
