package fontkit

// Built-in Helvetica metrics from the Adobe core font AFM, in
// thousandths of an em. The fallback font needs no font file because
// every conforming reader ships the base-14 fonts.

var helveticaASCII = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, // space ! " # $ % & '
	333, 333, 389, 584, 278, 333, 278, 278, // ( ) * + , - . /
	556, 556, 556, 556, 556, 556, 556, 556, // 0 1 2 3 4 5 6 7
	556, 556, 278, 278, 584, 584, 584, 556, // 8 9 : ; < = > ?
	1015, 667, 667, 722, 722, 667, 611, 778, // @ A B C D E F G
	722, 278, 500, 667, 556, 833, 722, 778, // H I J K L M N O
	667, 778, 722, 667, 611, 722, 667, 944, // P Q R S T U V W
	667, 667, 611, 278, 278, 278, 469, 556, // X Y Z [ \ ] ^ _
	333, 556, 556, 500, 556, 556, 278, 556, // ` a b c d e f g
	556, 222, 222, 500, 222, 833, 556, 556, // h i j k l m n o
	556, 556, 333, 500, 278, 556, 500, 722, // p q r s t u v w
	500, 500, 500, 334, 260, 334, 584, // x y z { | } ~
}

// helveticaExtra covers the WinAnsi characters the service actually
// meets in Latin text. Accented letters share their base letter width.
var helveticaExtra = map[rune]float64{
	' ': 278, // nbsp
	'¡':      333, '¢': 556, '£': 556, '¤': 556, '¥': 556, '¦': 260,
	'§': 556, '¨': 333, '©': 737, 'ª': 370, '«': 556, '¬': 584,
	'®': 737, '¯': 333, '°': 400, '±': 584, '´': 333, 'µ': 556,
	'¶': 537, '·': 278, '»': 556, '¿': 611,
	'À': 667, 'Á': 667, 'Â': 667, 'Ã': 667, 'Ä': 667, 'Å': 667,
	'Æ': 1000, 'Ç': 722, 'È': 667, 'É': 667, 'Ê': 667, 'Ë': 667,
	'Ì': 278, 'Í': 278, 'Î': 278, 'Ï': 278, 'Ð': 722, 'Ñ': 722,
	'Ò': 778, 'Ó': 778, 'Ô': 778, 'Õ': 778, 'Ö': 778, '×': 584,
	'Ø': 778, 'Ù': 722, 'Ú': 722, 'Û': 722, 'Ü': 722, 'Ý': 667,
	'Þ': 667, 'ß': 611,
	'à': 556, 'á': 556, 'â': 556, 'ã': 556, 'ä': 556, 'å': 556,
	'æ': 889, 'ç': 500, 'è': 556, 'é': 556, 'ê': 556, 'ë': 556,
	'ì': 278, 'í': 278, 'î': 278, 'ï': 278, 'ð': 556, 'ñ': 556,
	'ò': 556, 'ó': 556, 'ô': 556, 'õ': 556, 'ö': 556, '÷': 584,
	'ø': 611, 'ù': 556, 'ú': 556, 'û': 556, 'ü': 556, 'ý': 500,
	'þ': 556, 'ÿ': 500,
	'€': 556, '‚': 222, 'ƒ': 556, '„': 333, '…': 1000, '†': 556,
	'‡': 556, 'ˆ': 333, '‰': 1000, 'Š': 667, '‹': 333, 'Œ': 1000,
	'Ž': 611, '‘': 222, '’': 222, '“': 333, '”': 333, '•': 350,
	'–': 556, '—': 1000, '˜': 333, '™': 1000, 'š': 500, '›': 333,
	'œ': 944, 'ž': 500, 'Ÿ': 667,
}

// Helvetica returns the built-in fallback font.
func Helvetica() *Font {
	widths := make(map[rune]float64, len(helveticaASCII)+len(helveticaExtra))
	for i, w := range helveticaASCII {
		widths[rune(i+0x20)] = w
	}
	for r, w := range helveticaExtra {
		widths[r] = w
	}
	return &Font{
		Name:       "Helvetica",
		PostScript: "Helvetica",
		Family:     "Helvetica",
		Builtin:    true,
		Metrics: Metrics{
			Ascent:    718,
			Descent:   -207,
			CapHeight: 718,
		},
		builtin: widths,
	}
}

// winAnsiByte maps a rune to its WinAnsi (cp1252) code point.
func winAnsiByte(r rune) (byte, bool) {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return byte(r), true
	case r >= 0xa0 && r <= 0xff:
		return byte(r), true
	}
	if b, ok := winAnsiSpecials[r]; ok {
		return b, true
	}
	return 0, false
}

var winAnsiSpecials = map[rune]byte{
	'€': 0x80, '‚': 0x82, 'ƒ': 0x83, '„': 0x84, '…': 0x85,
	'†': 0x86, '‡': 0x87, 'ˆ': 0x88, '‰': 0x89, 'Š': 0x8a,
	'‹': 0x8b, 'Œ': 0x8c, 'Ž': 0x8e, '‘': 0x91, '’': 0x92,
	'“': 0x93, '”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97,
	'˜': 0x98, '™': 0x99, 'š': 0x9a, '›': 0x9b, 'œ': 0x9c,
	'ž': 0x9e, 'Ÿ': 0x9f,
}
