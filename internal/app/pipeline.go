package app

import (
	"io"

	"github.com/dev-tams/cronkit/internal/compression"
	"github.com/dev-tams/cronkit/internal/encryption"
)

type closeStack []io.Closer

func (cs *closeStack) add(c io.Closer) {
	*cs = append(*cs, c)
}

func (cs closeStack) closeAll() {
	for i := len(cs) - 1; i >= 0; i-- {
		_ = cs[i].Close()
	}
}

// pipe runs stage in a goroutine, feeding its output to the returned reader.
func pipe(src io.Reader, closers *closeStack, stage func(io.Writer, io.Reader) (int64, error)) io.Reader {
	pr, pw := io.Pipe()
	closers.add(pr)

	go func() {
		_, err := stage(pw, src)
		_ = pw.CloseWithError(err)
	}()
	return pr
}

// encodeStream applies gzip then encryption, matching report.Ext ordering.
func encodeStream(src io.Reader, compress bool, password string, closers *closeStack) io.Reader {
	stream := src
	if compress {
		stream = pipe(stream, closers, compression.Gzip)
	}
	if password != "" {
		stream = pipe(stream, closers, func(dst io.Writer, src io.Reader) (int64, error) {
			return encryption.EncryptAESGCM(dst, src, password)
		})
	}
	return stream
}

// decodeStream reverses encodeStream: decrypt then gunzip.
func decodeStream(src io.Reader, compressed bool, password string, closers *closeStack) io.Reader {
	stream := src
	if password != "" {
		stream = pipe(stream, closers, func(dst io.Writer, src io.Reader) (int64, error) {
			return encryption.DecryptAESGCM(dst, src, password)
		})
	}
	if compressed {
		stream = pipe(stream, closers, compression.Gunzip)
	}
	return stream
}
