package envelope

import (
	"crypto/cipher"
	"crypto/subtle"
	"fmt"
	"io"
)

// streamReader opens one sealed chunk at a time. It buffers a single
// chunk of ciphertext plus one lookahead byte: a shorter read at EOF is
// what identifies the final chunk, which is then opened under the
// final-marker nonce and checked against the recorded tag.
type streamReader struct {
	aead    cipher.AEAD
	src     io.Reader
	iv      []byte
	wantTag []byte
	counter uint32
	ct      []byte // buffered ciphertext, cap chunkSize+overhead+1
	plain   []byte // verified plaintext not yet handed out
	err     error
}

func newStreamReader(aead cipher.AEAD, src io.Reader, iv, tag []byte) *streamReader {
	return &streamReader{
		aead:    aead,
		src:     src,
		iv:      append([]byte(nil), iv...),
		wantTag: append([]byte(nil), tag...),
		ct:      make([]byte, 0, chunkSize+overhead+1),
	}
}

func (r *streamReader) Read(p []byte) (int, error) {
	for len(r.plain) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}
	n := copy(p, r.plain)
	r.plain = r.plain[n:]
	return n, nil
}

func (r *streamReader) fill() {
	max := chunkSize + overhead + 1
	n, err := io.ReadFull(r.src, r.ct[len(r.ct):max])
	r.ct = r.ct[:len(r.ct)+n]

	switch err {
	case nil:
		// Full chunk plus lookahead: this chunk is not final.
		r.openChunk(r.ct[:chunkSize+overhead], false)
		if r.err != nil {
			return
		}
		if r.counter == ^uint32(0) {
			r.err = fmt.Errorf("%w: chunk counter exhausted", ErrAuthentication)
			return
		}
		r.counter++
		rest := copy(r.ct, r.ct[chunkSize+overhead:])
		r.ct = r.ct[:rest]
	case io.EOF, io.ErrUnexpectedEOF:
		// Source exhausted: whatever is buffered is the final chunk.
		if len(r.ct) < overhead {
			r.err = fmt.Errorf("%w: truncated ciphertext", ErrAuthentication)
			return
		}
		gotTag := r.ct[len(r.ct)-overhead:]
		if subtle.ConstantTimeCompare(gotTag, r.wantTag) != 1 {
			r.err = fmt.Errorf("%w: tag mismatch", ErrAuthentication)
			return
		}
		r.openChunk(r.ct, true)
		if r.err != nil {
			return
		}
		r.ct = r.ct[:0]
		r.err = io.EOF
	default:
		r.err = fmt.Errorf("read ciphertext stream: %w", err)
	}
}

func (r *streamReader) openChunk(ct []byte, final bool) {
	plain, err := r.aead.Open(nil, chunkNonce(r.iv, r.counter, final), ct, nil)
	if err != nil {
		r.err = fmt.Errorf("%w: chunk %d", ErrAuthentication, r.counter)
		return
	}
	r.plain = plain
}
