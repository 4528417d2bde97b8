package config

import "github.com/urfave/cli/v3"

// Server holds server configuration
type Server struct {
	Addr      string
	AutoTitle bool
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Relay server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("WEBCHATTER_ADDR"),
		},
		&cli.BoolFlag{
			Name:        "auto-title",
			Usage:       "Generate a title after a conversation is created",
			Value:       true,
			Destination: &c.AutoTitle,
			Sources:     cli.EnvVars("WEBCHATTER_AUTO_TITLE"),
		},
	}
}
