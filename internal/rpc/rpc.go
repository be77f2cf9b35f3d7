package rpc

import (
	"errors"
	"net"
	gorpc "net/rpc"
	"os"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
)

const DefaultSocket = "/var/run/ntpproxy.sock"

const fetchStatusMethod = "NTPProxyRPCServer.FetchStatus"

type StatusProvider interface {
	Status() ntp.Status
}

type NTPProxyRPCServer struct {
	Socket string
	Relay  StatusProvider

	listener net.Listener
}

// Listen removes a stale socket left by a previous run and starts accepting
// status clients on a fresh one.
func (s *NTPProxyRPCServer) Listen() error {
	server := gorpc.NewServer()
	if err := server.Register(s); err != nil {
		return err
	}

	err := os.Remove(s.Socket)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	l, err := net.Listen("unix", s.Socket)
	if err != nil {
		return err
	}
	s.listener = l

	go server.Accept(l)
	return nil
}

func (s *NTPProxyRPCServer) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *NTPProxyRPCServer) FetchStatus(args int, reply *ntp.Status) error {
	*reply = s.Relay.Status()
	return nil
}

type Client struct {
	*gorpc.Client
}

func Dial(socket string) (*Client, error) {
	client, err := gorpc.Dial("unix", socket)
	if err != nil {
		return nil, err
	}
	return &Client{client}, nil
}

func (c *Client) FetchStatus() (ntp.Status, error) {
	var status ntp.Status
	err := c.Call(fetchStatusMethod, 0, &status)
	return status, err
}
