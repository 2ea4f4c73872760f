// Package hachimi implements a reversible codec between human text and
// "hachimi", a token language of cat noises.
//
// Encoding is a fixed pipeline:
//
//	text -> UTF-8 bytes + FNV-1a trailer -> gzip -> 10-bit chunks
//	     -> salted chunk values -> tokens -> lead word + header + tokens
//
// Decoding re-segments the surface text with a memoized backtracking
// parser, reverses every stage and finally re-encodes the recovered text
// to confirm it yields the observed chunk stream.
//
// # Tokens
//
// A token is a base word followed by up to four optional decorations, in
// this order:
//
//	base [onomatopoeia] [emoji] [symbol] [kaomoji]
//
// A token value v in [0, 1024) splits into baseIndex = v mod B and
// variantIndex = v div B, where B is the number of base words. The variant
// index selects a Template, which decides which decorations appear and,
// together with the base index, which fragment of each pool is used.
//
// # Messages
//
//	lead header chunk...
//
// The lead is a bare base word from a small fixed set and marks a hachimi
// message. The header carries tailBits + 16*salt. Every payload chunk c is
// written as (c + salt) mod 1024, so the same text encodes differently on
// each call while always decoding to the same result.
//
// # Non-goals
//
// The salt is cosmetic. The codec provides no confidentiality and no
// tamper resistance, and a foreign string that passes both the checksum
// and the self-check is astronomically unlikely but not impossible.
package hachimi
