// session.go - encrypted wire session.
// Copyright (C) 2025  The triplex Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package wire implements the triplex session transport: length prefixed
// frames over a reliable stream, a handshake that validates the bundled
// client identity and transports fresh per-session keys, and the
// encrypted, sequence checked request/answer exchange.
//
// Every frame is protected by Blowfish-CBC under a key bundled with both
// peers.  This is traffic obfuscation, not security: any holder of the
// binary can decrypt a session.  The handshake additionally transports a
// GOST key and a 3-Way key; when both peers are configured for the triple
// transport the application frames are layered through all three ciphers.
package wire

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/blowfish"
	"gopkg.in/op/go-logging.v1"

	"github.com/triplex-sh/triplex/core/crypto/gost"
	"github.com/triplex-sh/triplex/core/crypto/mode"
	"github.com/triplex-sh/triplex/core/crypto/rand"
	"github.com/triplex-sh/triplex/core/crypto/threeway"
	"github.com/triplex-sh/triplex/core/wire/commands"
)

// bfKey is the bundled 56 byte Blowfish transport key.
var bfKey = []byte{
	0xbe, 0x2f, 0xe0, 0xa8, 0xd9, 0xc9, 0xec, 0x31, 0x06, 0x67,
	0x7a, 0x1b, 0xe6, 0x93, 0xdc, 0x72, 0xaf, 0xa1, 0xfa, 0x68,
	0xc4, 0x59, 0x02, 0x05, 0xd3, 0xf8, 0xf1, 0xd4, 0x6e, 0x38,
	0x84, 0x12, 0x68, 0x12, 0x6e, 0x7a, 0x4a, 0xb7, 0xd9, 0x21,
	0x93, 0x23, 0xe9, 0x90, 0xe3, 0xf2, 0xf2, 0xec, 0x6b, 0x36,
	0x66, 0xa9, 0x51, 0xa9, 0xb6, 0x71,
}

// clientID is the bundled 128 byte client identity token presented during
// the handshake.
var clientID = []byte{
	0x28, 0xb6, 0x01, 0xb3, 0xc4, 0x9c, 0x16, 0xf5, 0xa4, 0x53,
	0x16, 0xd0, 0x00, 0xc8, 0xab, 0x1d, 0xb5, 0x70, 0x5f, 0xe1,
	0x92, 0x45, 0x0c, 0x6c, 0x39, 0xdb, 0x88, 0x69, 0x84, 0xd6,
	0x18, 0x00, 0x93, 0xc6, 0x7d, 0x95, 0xab, 0xc3, 0xf0, 0xb8,
	0x15, 0x7f, 0x2f, 0x4e, 0x64, 0x48, 0xe0, 0xa1, 0x75, 0xe9,
	0x2f, 0x20, 0xc1, 0x8f, 0x42, 0x93, 0x24, 0x71, 0x29, 0xe1,
	0x7b, 0x36, 0xc0, 0x02, 0x49, 0x99, 0x98, 0x0e, 0x08, 0xab,
	0xd7, 0x82, 0x70, 0x55, 0x27, 0x5f, 0x73, 0xf1, 0x24, 0x29,
	0xbd, 0xa0, 0x1e, 0x14, 0xe0, 0x99, 0xc8, 0x70, 0xd5, 0x56,
	0x55, 0x86, 0xfd, 0x44, 0x2b, 0x83, 0xbf, 0xd1, 0x03, 0x46,
	0x08, 0x28, 0x3f, 0x95, 0xa8, 0x8a, 0x34, 0xe7, 0xfd, 0x52,
	0xba, 0x6b, 0x74, 0xd8, 0x13, 0xdc, 0x16, 0x85, 0xd5, 0x4e,
	0x6e, 0x08, 0xf1, 0xa2, 0x4f, 0x94, 0x88, 0xa3,
}

const keyBundleSize = gost.KeySize + threeway.KeySize

var (
	// ErrInvalidClientID is the fatal handshake error for an identity
	// token that does not match the bundled constant.
	ErrInvalidClientID = errors.New("wire: invalid client identity")

	// ErrInvalidKeyBundle is the fatal handshake error for a session key
	// bundle of the wrong length.
	ErrInvalidKeyBundle = errors.New("wire: invalid session key bundle")

	// ErrBadSequence is the fatal error for a message whose sequence id
	// does not follow its predecessor.
	ErrBadSequence = errors.New("wire: message out of sequence")

	// ErrDecrypt is the fatal error for a frame that does not decrypt to
	// a well-formed payload.
	ErrDecrypt = errors.New("wire: frame decryption failed")

	// ErrNotReady is returned when a message operation is attempted
	// before the handshake has completed, or after the session closed.
	ErrNotReady = errors.New("wire: session is not ready")
)

// Side identifies which end of the session this peer is.
type Side int

const (
	// SideServer accepts the handshake.
	SideServer Side = iota

	// SideClient initiates the handshake.
	SideClient
)

func (s Side) String() string {
	if s == SideServer {
		return "server"
	}
	return "client"
}

// State is the session lifecycle state.
type State int

const (
	// StateFresh is a session that has not started its handshake.
	StateFresh State = iota

	// StateHandshaking is a session with a handshake in flight.
	StateHandshaking

	// StateReady is a session that can exchange messages.
	StateReady

	// StateClosed is the terminal state; the stream has been released.
	StateClosed
)

// SessionConfig carries the tunables of a Session.
type SessionConfig struct {
	// MaxFrameSize bounds incoming frame payloads; 0 selects
	// DefaultMaxFrameSize.
	MaxFrameSize uint32

	// ReadTimeout, when non-zero, is applied as a deadline to every
	// frame read.
	ReadTimeout time.Duration

	// TripleTransport layers application frames through all three
	// ciphers (Blowfish encrypt, GOST inverse, 3-Way encrypt) instead of
	// Blowfish only.  Both peers must agree; the handshake itself is
	// always Blowfish only.
	TripleTransport bool
}

// Session owns one connected stream and the cipher state bound to it.  A
// Session is confined to the goroutine that owns the stream; none of its
// methods are safe for concurrent use.
type Session struct {
	conn net.Conn
	side Side
	cfg  SessionConfig
	log  *logging.Logger

	bf   *mode.Codec
	gost *mode.Codec
	way3 *mode.Codec

	// Raw key material, held only so that it can be wiped at Close.
	gostKey []byte
	way3Key []byte

	state       State
	lastRequest *commands.Request
	lastAnswer  *commands.Answer
}

// NewSession wraps an established stream.  The Blowfish engine exists
// from the start; the GOST and 3-Way engines appear when Initialize
// completes.
func NewSession(conn net.Conn, side Side, cfg SessionConfig, log *logging.Logger) *Session {
	blk, err := blowfish.NewCipher(bfKey)
	if err != nil {
		// The bundled key has a valid length; this cannot happen.
		panic("wire: bundled transport key rejected: " + err.Error())
	}
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	return &Session{
		conn:  conn,
		side:  side,
		cfg:   cfg,
		log:   log,
		bf:    mode.NewCodec(blk),
		state: StateFresh,
	}
}

// State returns the session lifecycle state.
func (s *Session) State() State {
	return s.state
}

// RemoteAddr returns the peer's address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close wipes the session key material and releases the stream.
func (s *Session) Close() error {
	s.state = StateClosed
	if s.gostKey != nil {
		memguard.WipeBytes(s.gostKey)
		s.gostKey = nil
	}
	if s.way3Key != nil {
		memguard.WipeBytes(s.way3Key)
		s.way3Key = nil
	}
	s.gost = nil
	s.way3 = nil
	return s.conn.Close()
}

// Initialize runs the handshake for this session's side.  On failure the
// session is left closed and the error is fatal.
func (s *Session) Initialize() error {
	if s.state != StateFresh {
		return ErrNotReady
	}
	s.state = StateHandshaking

	var err error
	switch s.side {
	case SideServer:
		err = s.initServer()
	case SideClient:
		err = s.initClient()
	}
	if err != nil {
		s.Close()
		return err
	}
	s.state = StateReady
	s.log.Debugf("Handshake complete (%v side)", s.side)
	return nil
}

func (s *Session) initServer() error {
	if err := s.readClientID(); err != nil {
		return err
	}
	return s.sendKeys()
}

func (s *Session) initClient() error {
	if err := s.sendClientID(); err != nil {
		return err
	}
	return s.readKeys()
}

func (s *Session) sendClientID() error {
	return WriteFrame(s.conn, s.bf.EncryptCBC(clientID))
}

func (s *Session) readClientID() error {
	frame, err := s.readFrame()
	if err != nil {
		return err
	}
	id := s.bf.DecryptCBC(frame)
	if len(id) != len(clientID) || !hmac.Equal(id, clientID) {
		return ErrInvalidClientID
	}
	return nil
}

func (s *Session) sendKeys() error {
	gostKey := rand.Bytes(gost.KeySize)
	way3Key := rand.Bytes(threeway.KeySize)

	bundle := make([]byte, 0, keyBundleSize)
	bundle = append(bundle, gostKey...)
	bundle = append(bundle, way3Key...)
	err := WriteFrame(s.conn, s.bf.EncryptCBC(bundle))
	memguard.WipeBytes(bundle)
	if err != nil {
		return err
	}
	return s.setSessionKeys(gostKey, way3Key)
}

func (s *Session) readKeys() error {
	frame, err := s.readFrame()
	if err != nil {
		return err
	}
	bundle := s.bf.DecryptCBC(frame)
	if len(bundle) != keyBundleSize {
		return ErrInvalidKeyBundle
	}
	return s.setSessionKeys(bundle[:gost.KeySize], bundle[gost.KeySize:])
}

func (s *Session) setSessionKeys(gostKey, way3Key []byte) error {
	g, err := gost.NewCipher(gostKey)
	if err != nil {
		// Unreachable on the fixed split sizes.
		return ErrInvalidKeyBundle
	}
	w, err := threeway.NewCipher(way3Key)
	if err != nil {
		return ErrInvalidKeyBundle
	}
	s.gost = mode.NewCodec(g)
	s.way3 = mode.NewCodec(w)
	s.gostKey = gostKey
	s.way3Key = way3Key
	return nil
}

// SendRequest assigns the next outbound sequence id to req and sends it.
func (s *Session) SendRequest(req *commands.Request) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	req.ID = 1
	if s.lastAnswer != nil {
		req.ID = s.lastAnswer.ID + 1
	}
	blob, err := req.ToJSON()
	if err != nil {
		return err
	}
	if err = s.writeSealed(blob); err != nil {
		s.fail()
		return err
	}
	s.lastRequest = req
	return nil
}

// ReadRequest reads the next Request, enforcing the sequence discipline.
func (s *Session) ReadRequest() (*commands.Request, error) {
	if s.state != StateReady {
		return nil, ErrNotReady
	}
	plain, err := s.readSealed()
	if err != nil {
		s.fail()
		return nil, err
	}
	req, err := commands.RequestFromJSON(plain)
	if err != nil {
		s.fail()
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if s.lastAnswer != nil && req.ID != s.lastAnswer.ID+1 {
		s.fail()
		return nil, ErrBadSequence
	}
	s.lastRequest = req
	return req, nil
}

// SendAnswer assigns the sequence id following the last Request to ans and
// sends it.
func (s *Session) SendAnswer(ans *commands.Answer) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	ans.ID = 1
	if s.lastRequest != nil {
		ans.ID = s.lastRequest.ID + 1
	}
	blob, err := ans.ToJSON()
	if err != nil {
		return err
	}
	if err = s.writeSealed(blob); err != nil {
		s.fail()
		return err
	}
	s.lastAnswer = ans
	return nil
}

// ReadAnswer reads the next Answer, enforcing the sequence discipline: the
// answer to request k carries id k+1.
func (s *Session) ReadAnswer() (*commands.Answer, error) {
	if s.state != StateReady {
		return nil, ErrNotReady
	}
	plain, err := s.readSealed()
	if err != nil {
		s.fail()
		return nil, err
	}
	ans, err := commands.AnswerFromJSON(plain)
	if err != nil {
		s.fail()
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if s.lastRequest != nil && ans.ID != s.lastRequest.ID+1 {
		s.fail()
		return nil, ErrBadSequence
	}
	s.lastAnswer = ans
	return ans, nil
}

// fail poisons the session after a fatal transport error.
func (s *Session) fail() {
	if s.state != StateClosed {
		s.Close()
	}
}

func (s *Session) readFrame() ([]byte, error) {
	if s.cfg.ReadTimeout != 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return nil, err
		}
	}
	return ReadFrame(s.conn, s.cfg.MaxFrameSize)
}

func (s *Session) writeSealed(plain []byte) error {
	return WriteFrame(s.conn, s.seal(plain))
}

func (s *Session) readSealed() ([]byte, error) {
	frame, err := s.readFrame()
	if err != nil {
		return nil, err
	}
	plain := s.open(frame)
	if len(plain) == 0 {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// seal encrypts an application payload.  The default transport is
// Blowfish-CBC alone; the triple transport pushes the Blowfish output
// through an inverse GOST layer and a 3-Way CBC layer.  The GOST layer
// runs raw (no padding) so that it round-trips byte-exactly; the 3-Way
// layer's 0x80 padding can still mis-strip an inner ciphertext whose
// length is a multiple of 12 and whose tail looks like padding.
func (s *Session) seal(plain []byte) []byte {
	sealed := s.bf.EncryptCBC(plain)
	if s.tripleActive() {
		sealed = s.way3.EncryptCBC(s.gost.DecryptECBRaw(sealed))
	}
	return sealed
}

// open inverts seal.  A nil result means the frame was malformed for the
// active transport.
func (s *Session) open(sealed []byte) []byte {
	if s.tripleActive() {
		inner := s.way3.DecryptCBC(sealed)
		sealed = s.gost.EncryptECBRaw(inner)
		if sealed == nil {
			return nil
		}
	}
	return s.bf.DecryptCBC(sealed)
}

func (s *Session) tripleActive() bool {
	return s.cfg.TripleTransport && s.gost != nil && s.way3 != nil
}
