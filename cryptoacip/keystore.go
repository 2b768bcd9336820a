package cryptoacip

import (
	"bufio"
	"crypto/ed25519"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// LoadAuthorizedKeys parses a file in the OpenSSH authorized_keys format
// (spec §6.3 "format compatible with OpenSSH authorized_keys"), returning
// every ssh-ed25519 key found. Lines of other key types or that fail to
// parse are skipped rather than aborting the whole file, mirroring sshd's
// own tolerance of mixed-algorithm authorized_keys files.
func LoadAuthorizedKeys(r io.Reader) ([]ed25519.PublicKey, error) {
	var keys []ed25519.PublicKey
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		pub, _, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			continue
		}
		if pub.Type() != ssh.KeyAlgoED25519 {
			continue
		}
		cryptoPub, ok := pub.(ssh.CryptoPublicKey)
		if !ok {
			continue
		}
		edPub, ok := cryptoPub.CryptoPublicKey().(ed25519.PublicKey)
		if !ok {
			continue
		}
		keys = append(keys, edPub)
	}
	if err := scanner.Err(); err != nil {
		return nil, newErr(KindProtocol, "load authorized keys", err)
	}
	return keys, nil
}

// MarshalAuthorizedKey renders pub in the OpenSSH authorized_keys line
// format, for writing known_hosts / authorized_clients entries.
func MarshalAuthorizedKey(pub ed25519.PublicKey) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", newErr(KindCrypto, "marshal authorized key", err)
	}
	return string(ssh.MarshalAuthorizedKey(sshPub)), nil
}

// LoadKnownHosts parses a known_hosts-style file (one pinned server key per
// line, same authorized_keys-compatible format) into a lookup keyed by
// hostname comment field, falling back to index if no comment is present.
func LoadKnownHosts(r io.Reader) (map[string]ed25519.PublicKey, error) {
	hosts := make(map[string]ed25519.PublicKey)
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		pub, comment, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			continue
		}
		cryptoPub, ok := pub.(ssh.CryptoPublicKey)
		if !ok {
			continue
		}
		edPub, ok := cryptoPub.CryptoPublicKey().(ed25519.PublicKey)
		if !ok {
			continue
		}
		key := comment
		if key == "" {
			key = fmt.Sprintf("host-%d", i)
		}
		hosts[key] = edPub
		i++
	}
	if err := scanner.Err(); err != nil {
		return nil, newErr(KindProtocol, "load known hosts", err)
	}
	return hosts, nil
}
