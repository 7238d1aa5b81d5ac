//go:build darwin

// Package smc reads battery sensors from the Apple System Management
// Controller.
package smc

import (
	"github.com/charlie0129/gosmc"
	"github.com/sirupsen/logrus"
)

// AppleSMC is a read-only wrapper of gosmc.Connection.
type AppleSMC struct {
	conn gosmc.Connection
}

// New returns a new AppleSMC. Call Open before reading.
func New() *AppleSMC {
	return &AppleSMC{
		conn: gosmc.New(),
	}
}

// NewMock returns an AppleSMC backed by an in-memory connection holding
// the given key values.
func NewMock(values map[string][]byte) *AppleSMC {
	conn := gosmc.NewMockConnection()

	for key, value := range values {
		if err := conn.Write(key, value); err != nil {
			panic(err)
		}
	}

	return &AppleSMC{
		conn: conn,
	}
}

// Open opens the connection.
func (c *AppleSMC) Open() error {
	return c.conn.Open()
}

// Close closes the connection.
func (c *AppleSMC) Close() error {
	return c.conn.Close()
}

// Read reads a raw key value.
func (c *AppleSMC) Read(key string) (gosmc.SMCVal, error) {
	v, err := c.conn.Read(key)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Trace("SMC read failed")
		return v, err
	}

	logrus.WithFields(logrus.Fields{
		"key": key,
		"val": v.Bytes,
	}).Trace("SMC read")

	return v, nil
}
