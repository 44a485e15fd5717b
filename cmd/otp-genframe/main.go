// Command otp-genframe writes the frames of a sample session to disk, one
// file per record, for wire-format inspection and decoder test seeds.
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"otp/pkg/cipher"
	"otp/pkg/protocol"
	"otp/pkg/protocol/codec"
	"otp/pkg/session"
	"otp/pkg/transport"
)

func main() {
	var outDir string
	cmd := &cobra.Command{
		Use:   "otp-genframe",
		Short: "Generate sample session frames.",
		Args:  cobra.NoArgs,
		RunE:  func(*cobra.Command, []string) error { return generate(outDir) },
	}
	cmd.Flags().StringVar(&outDir, "out", "testdata/frame", "output directory for binary frames")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generate(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	reg := codec.NewRegistry()

	data, key := []byte("HELLO WORLD"), []byte("XMCKLQWERTY")
	result, err := cipher.Apply(cipher.Encrypt, data, key)
	if err != nil {
		return err
	}

	// 1) One complete encrypt session
	seq := []protocol.Record{
		protocol.NewRecord(protocol.MsgIdentity, session.EncClient.Token()),
		protocol.NewRecord(protocol.MsgIdentity, session.EncServer.Token()),
		protocol.NewRecord(protocol.MsgData, data),
		protocol.NewRecord(protocol.MsgAck, nil),
		protocol.NewRecord(protocol.MsgKey, key),
		protocol.NewRecord(protocol.MsgResult, result),
		protocol.NewRecord(protocol.MsgStop, nil),
	}
	for i := range seq {
		name := fmt.Sprintf("frame_%02d_%s.bin", i, protocol.TypeName(seq[i].Type()))
		if err := writeFrame(outDir, name, &seq[i]); err != nil {
			return err
		}
	}

	// 2) Data that spells the old sentinel
	stopData := protocol.NewRecord(protocol.MsgData, []byte("STOP"))
	if err := writeFrame(outDir, "frame_data_stop_text.bin", &stopData); err != nil {
		return err
	}

	// 3) Abort bodies in both formats
	a := &protocol.Abort{Code: protocol.AbortAlphabet, Stream: string(cipher.StreamData), Offset: 4, Detail: "bad character 'o'"}
	for _, f := range []protocol.Format{protocol.FormatJSON, protocol.FormatCBOR} {
		rec, err := protocol.StopRecord(reg, f, a)
		if err != nil {
			return err
		}
		name := "frame_abort_" + strings.TrimPrefix(f.String(), "application/") + ".bin"
		if err := writeFrame(outDir, name, &rec); err != nil {
			return err
		}
	}

	fmt.Println("Generated session frames in", outDir)
	return nil
}

// writeFrame stores the record exactly as it travels: length prefix included.
func writeFrame(dir, name string, rec *protocol.Record) error {
	body, err := rec.EncodeFrame()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := transport.WriteFrame(&buf, body); err != nil {
		return err
	}
	b := buf.Bytes()
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		return err
	}
	fmt.Printf("%-28s %5d bytes  head: %s\n", name, len(b), shortHex(b, 32))
	return nil
}

func shortHex(b []byte, n int) string {
	if len(b) == 0 {
		return ""
	}
	n = min(n, len(b))
	enc := hex.EncodeToString(b[:n])
	if len(b) > n {
		enc += "..."
	}
	var out []string
	for i := 0; i < len(enc); i += 4 {
		out = append(out, enc[i:min(i+4, len(enc))])
	}
	return strings.Join(out, " ")
}
