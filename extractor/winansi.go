package extractor

// winAnsiRunes maps cp1252 byte values to runes. Outside 0x80..0x9f
// the encoding coincides with Latin-1.
var winAnsiRunes = buildWinAnsi()

func buildWinAnsi() [256]rune {
	var t [256]rune
	for i := range t {
		t[i] = rune(i)
	}
	specials := map[byte]rune{
		0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„', 0x85: '…',
		0x86: '†', 0x87: '‡', 0x88: 'ˆ', 0x89: '‰', 0x8a: 'Š',
		0x8b: '‹', 0x8c: 'Œ', 0x8e: 'Ž', 0x91: '‘', 0x92: '’',
		0x93: '“', 0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—',
		0x98: '˜', 0x99: '™', 0x9a: 'š', 0x9b: '›', 0x9c: 'œ',
		0x9e: 'ž', 0x9f: 'Ÿ',
	}
	for b, r := range specials {
		t[b] = r
	}
	return t
}
