package catalog

// Wavetable is a named function table available to table-reading opcodes.
type Wavetable struct {
	Name        string
	Declaration string
}

// DefaultWavetables is the wavetable registry used by "w" specs.
var DefaultWavetables = []Wavetable{
	{Name: "giSine", Declaration: "giSine    ftgen     0, 0, 2^10, 10, 1"},
	{Name: "giSaw", Declaration: "giSaw     ftgen     0, 0, 2^10, 10, 1, 1/2, 1/3, 1/4, 1/5, 1/6, 1/7, 1/8, 1/9"},
	{Name: "giSquare", Declaration: "giSquare  ftgen     0, 0, 2^10, 10, 1, 0, 1/3, 0, 1/5, 0, 1/7, 0, 1/9"},
	{Name: "giTri", Declaration: "giTri     ftgen     0, 0, 2^10, 10, 1, 0, -1/9, 0, 1/25, 0, -1/49, 0, 1/81"},
	{Name: "giImp", Declaration: "giImp     ftgen     0, 0, 2^10, 10, 1, 1, 1, 1, 1, 1, 1, 1, 1"},
}

// WavetableNames lists the registry names in declaration order.
func WavetableNames(tables []Wavetable) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names
}

// DefaultTable is the built-in Csound opcode table. Optional arguments are
// expressed as explicit overloads.
var DefaultTable = []Item{
	Marker(TagOscillator),
	Signature("ares oscil xamp:[0,1], xcps:f, ifn:w, iphs:[0,1]"),
	Signature("kres oscil kamp:[0,1], kcps:f, ifn:w, iphs:[0,1]"),
	Signature("ares oscili xamp:[0,1], xcps:f, ifn:w, iphs:[0,1]"),
	Signature("kres oscili kamp:[0,1], kcps:f, ifn:w, iphs:[0,1]"),
	Signature("ares poscil aamp:[0,1], acps:f, ifn:w, iphs:[0,1]"),
	Signature("ares poscil aamp:[0,1], kcps:f, ifn:w, iphs:[0,1]"),
	Signature("ares poscil kamp:[0,1], acps:f, ifn:w, iphs:[0,1]"),
	Signature("ares poscil kamp:[0,1], kcps:f, ifn:w, iphs:[0,1]"),
	Signature("ires poscil kamp:[0,1], kcps:f, ifn:w, iphs:[0,1]"),
	Signature("kres poscil kamp:[0,1], kcps:f, ifn:w, iphs:[0,1]"),
	Signature("ares buzz xamp:[0,1], xcps:f, knh:(1,2,3,4,5,6), ifn:w, iphs:[0,1]"),
	Signature("ares gbuzz xamp:[0,1], xcps:f, knh:(1,2,3,4,5,6), klh:[-4,4], kmul:[0,1], ifn:w, iphs:[0,1]"),
	Signature("ares mpulse kamp:[0,1], kintvl:fr"),
	Signature("ares vco xamp:[0,1], xcps:f, iwave:w, kpw:[0,1]"),
	Signature("ares vco2 kamp:[0,1], kcps:f, imode:(0,2,4,6,10,12), kpw:[0,1], kphs:[0,1]"),
	Signature("ares phasor xcps:f, iphs:[0,1]"),
	Signature("kres phasor kcps:f, iphs:[0,1]"),

	Marker(TagRandom),
	Signature("ares rand xamp:[0,1]"),
	Signature("kres rand xamp:[0,1]"),
	Signature("ares randi xamp:[0,1], xcps:f"),
	Signature("kres randi kamp:[0,1], kcps:f"),
	Signature("ares randh xamp:[0,1], xcps:f"),
	Signature("kres randh kamp:[0,1], kcps:f"),

	Marker(TagEnvelope),
	Signature("ares linen xamp:[0,1], irise:t, idur:t, idec:t"),
	Signature("kres linen kamp:[0,1], irise:t, idur:t, idec:t"),
	Signature("ares adsr iatt:t, idec:t, islev:[0,1], irel:t, idel:t"),
	Signature("kres adsr iatt:t, idec:t, islev:[0,1], irel:t, idel:t"),
	Signature("ares madsr iatt:t, idec:t, islev:[0,1], irel:t, idel:t"),
	Signature("kres madsr iatt:t, idec:t, islev:[0,1], irel:t, idel:t"),
	Signature("ares linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1]"),
	Signature("kres linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1]"),
	Signature("ares linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1]"),
	Signature("kres linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1]"),
	Signature("ares linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1], idur4:t, ie:[0,1]"),
	Signature("kres linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1], idur4:t, ie:[0,1]"),
	Signature("ares linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1], idur4:t, ie:[0,1], idur5:t, if:[0,1]"),
	Signature("kres linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1], idur4:t, ie:[0,1], idur5:t, if:[0,1]"),
	Signature("ares linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1], idur4:t, ie:[0,1], idur5:t, if:[0,1], idur6:t, ig:[0,1]"),
	Signature("kres linseg ia:[0,1], idur1:t, ib:[0,1], idur2:t, ic:[0,1], idur3:t, id:[0,1], idur4:t, ie:[0,1], idur5:t, if:[0,1], idur6:t, ig:[0,1]"),
	// zero is illegal for exponential segments
	Signature("ares expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1]"),
	Signature("kres expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1]"),
	Signature("ares expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1]"),
	Signature("kres expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1]"),
	Signature("ares expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1], idur4:t, ie:[.05,1]"),
	Signature("kres expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1], idur4:t, ie:[.05,1]"),
	Signature("ares expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1], idur4:t, ie:[.05,1], idur5:t, if:[.05,1]"),
	Signature("kres expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1], idur4:t, ie:[.05,1], idur5:t, if:[.05,1]"),
	Signature("ares expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1], idur4:t, ie:[.05,1], idur5:t, if:[.05,1], idur6:t, ig:[0,1]"),
	Signature("kres expseg ia:[.05,1], idur1:t, ib:[.05,1], idur2:t, ic:[.05,1], idur3:t, id:[.05,1], idur4:t, ie:[.05,1], idur5:t, if:[.05,1], idur6:t, ig:[0,1]"),

	Marker(TagDelay),
	Signature("ares delay asig, idlt:[0,1]"),
	Signature("kr delayk ksig, idel:t, imode:(0,1,2)"),

	Marker(TagFilter),
	Signature("ares tone asig, khp:f"),
	Signature("ares tonex asig, khp:f, inumlayer:(2,4,6)"),
	Signature("ares tonex asig, ahp:f, inumlayer:(2,4,6)"),
	Signature("ares butterlp asig, kfreq:f"),
	Signature("ares butterlp asig, afreq:f"),
	Signature("ares atone asig, khp:f"),
	Signature("ares atonex asig, khp:f, inumlayer:(2,4,6)"),
	Signature("ares atonex asig, ahp:f, inumlayer:(2,4,6)"),
	Signature("ares butterhp asig, kfreq:f"),
	Signature("ares butterhp asig, afreq:f"),
	Signature("ares reson asig, xcf:f, xbw:fd, iscl:(0,1,2)"),
	Signature("ares resonx asig, xcf:f, xbw:fd, inumlayer:(2,4,6), iscl:(0,1,2)"),
	Signature("ares resony asig, kbf:f, kbw:fd, inum:(2,4,6), ksep:(1,2,3), isepmode:(0,1), iscl:(0,1,2)"),
	Signature("ares resonr asig, xcf:f, xbw:fd, iscl:(0,1,2)"),
	Signature("ares resonz asig, xcf:f, xbw:fd, iscl:(0,1,2)"),
	Signature("ares butterbp asig, xfreq:f, xband:fd"),
	Signature("ares areson asig, kcf:f, kbw:fd, iscl:(0,1,2)"),
	Signature("ares areson asig, acf:f, kbw:fd, iscl:(0,1,2)"),
	Signature("ares areson asig, kcf:f, abw:fd, iscl:(0,1,2)"),
	Signature("ares areson asig, acf:f, abw:fd, iscl:(0,1,2)"),
	Signature("ares butterbp asig, xfreq:f, xband:fd"),

	Marker(TagReverb),
	// time parameters are constants: only constants have guaranteed ranges
	Signature("ares reverb asig, irvt:t"),
	Signature("ares nreverb asig, itime:t, ihdif:[0,1]"),

	Marker(TagMath),
	// mac/maca/product/sum have no optional-argument support, so arities are listed.
	Signature("ares mac ksig1:[0,1], asig1"),
	Signature("ares mac ksig1:[0,1], asig1, ksig2:[0,1], asig2"),
	Signature("ares mac ksig1:[0,1], asig1, ksig2:[0,1], asig2, ksig3:[0,1], asig3"),
	Signature("ares mac ksig1:[0,1], asig1, ksig2:[0,1], asig2, ksig3:[0,1], asig3, ksig4:[0,1], asig4"),
	Signature("ares mac ksig1:[0,1], asig1, ksig2:[0,1], asig2, ksig3:[0,1], asig3, ksig4:[0,1], asig4, ksig5:[0,1], asig5"),
	Signature("ares maca asig1, asig2"),
	Signature("ares maca asig1, asig2, asig3"),
	Signature("ares maca asig1, asig2, asig3, asig4"),
	Signature("ares maca asig1, asig2, asig3, asig4, asig5"),
	Signature("ares product asig1, asig2"),
	Signature("ares product asig1, asig2, asig3"),
	Signature("ares product asig1, asig2, asig3, asig4"),
	Signature("ares product asig1, asig2, asig3, asig4, asig5"),
	Signature("ares sum asig1"),
	Signature("ares sum asig1, asig2"),
	Signature("ares sum asig1, asig2, asig3"),
	Signature("ares sum asig1, asig2, asig3, asig4"),
	Signature("ares sum asig1, asig2, asig3, asig4, asig5"),
}

// Default builds the catalog of DefaultTable.
func Default() (*Catalog, error) {
	return Build(DefaultTable)
}
