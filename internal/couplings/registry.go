// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package couplings

import "fmt"

// registry maps every named coupling to its slot. Names address the first
// resonance only.
var registry = buildRegistry()

func buildRegistry() map[string]Slot {
	r := make(map[string]Slot, 140)

	add := func(name string, slot Slot) {
		if _, dup := r[name]; dup {
			panic(fmt.Sprintf("duplicate coupling name %q", name))
		}
		r[name] = slot
	}

	// Gluon couplings.
	add("ghg2", Slot{Block: BlockHGG, Index: 0})
	add("ghg3", Slot{Block: BlockHGG, Index: 1})
	add("ghg4", Slot{Block: BlockHGG, Index: 2})

	// Yukawa couplings.
	add("kappa", Slot{Block: BlockHQQ, Index: 0})
	add("kappa_tilde", Slot{Block: BlockHQQ, Index: 1})

	// HZZ block: the four leading couplings, the Zgamma and gammagamma
	// slots, the q^2-expansion primes, and the prime6/prime7 tail.
	for j := 1; j <= 4; j++ {
		add(fmt.Sprintf("ghz%d", j), Slot{Block: BlockHZZ, Index: j - 1})
	}
	add("ghzgs2", Slot{Block: BlockHZZ, Index: 4})
	add("ghzgs3", Slot{Block: BlockHZZ, Index: 5})
	add("ghzgs4", Slot{Block: BlockHZZ, Index: 6})
	add("ghgsgs2", Slot{Block: BlockHZZ, Index: 7})
	add("ghgsgs3", Slot{Block: BlockHZZ, Index: 8})
	add("ghgsgs4", Slot{Block: BlockHZZ, Index: 9})
	addPrimes(add, "ghz", BlockHZZ)
	add("ghzgs1_prime2", Slot{Block: BlockHZZ, Index: 30})

	// HWW block: same layout, but the photon-mixing slots (4-9, 30) have
	// no W counterpart and stay unnamed.
	for j := 1; j <= 4; j++ {
		add(fmt.Sprintf("ghw%d", j), Slot{Block: BlockHWW, Index: j - 1})
	}
	addPrimes(add, "ghw", BlockHWW)

	// Form-factor scales and switches.
	addLambda(add, "z", BlockLambdaZ, BlockCLambdaZ)
	addLambda(add, "w", BlockLambdaW, BlockCLambdaW)

	// Spin-1 resonance.
	add("zprime_qq_left", Slot{Block: BlockZQQ, Index: 0})
	add("zprime_qq_right", Slot{Block: BlockZQQ, Index: 1})
	add("zprime_zz_1", Slot{Block: BlockZVV, Index: 0})
	add("zprime_zz_2", Slot{Block: BlockZVV, Index: 1})

	// Spin-2 resonance.
	add("graviton_qq_left", Slot{Block: BlockGQQ, Index: 0})
	add("graviton_qq_right", Slot{Block: BlockGQQ, Index: 1})
	for i := 0; i < SizeGGG; i++ {
		add(fmt.Sprintf("a%d", i+1), Slot{Block: BlockGGG, Index: i})
	}
	for i := 0; i < SizeGVV; i++ {
		add(fmt.Sprintf("b%d", i+1), Slot{Block: BlockGVV, Index: i})
	}

	return r
}

// addPrimes registers the gh{z,w}{1..4}_prime family: _prime and
// _prime2-5 occupy five consecutive slots per coupling from index 10, and
// the _prime6/_prime7 pairs follow from index 31.
func addPrimes(add func(string, Slot), prefix string, block Block) {
	for j := 1; j <= 4; j++ {
		base := 10 + (j-1)*5
		add(fmt.Sprintf("%s%d_prime", prefix, j), Slot{Block: block, Index: base})
		for k := 2; k <= 5; k++ {
			add(fmt.Sprintf("%s%d_prime%d", prefix, j, k), Slot{Block: block, Index: base + k - 1})
		}
	}
	for j := 1; j <= 4; j++ {
		add(fmt.Sprintf("%s%d_prime6", prefix, j), Slot{Block: block, Index: 31 + (j-1)*2})
		add(fmt.Sprintf("%s%d_prime7", prefix, j), Slot{Block: block, Index: 32 + (j-1)*2})
	}
}

// addLambda registers the Lambda_{v}{q}{j} scales and c{v}_q*sq channel
// switches. The name's first digit picks the q^2 channel (1 for q1^2,
// 2 for q2^2, 0 for q12^2), the second the lambda index.
func addLambda(add func(string, Slot), v string, lambdaBlock, cBlock Block) {
	channels := []struct {
		digit   int
		channel int
		cName   string
	}{
		{1, ChannelQ1Sq, fmt.Sprintf("c%s_q1sq", v)},
		{2, ChannelQ2Sq, fmt.Sprintf("c%s_q2sq", v)},
		{0, ChannelQ12Sq, fmt.Sprintf("c%s_q12sq", v)},
	}
	for _, ch := range channels {
		add(ch.cName, Slot{Block: cBlock, Channel: ch.channel, Kind: KindInt})
		for j := 1; j <= 4; j++ {
			add(fmt.Sprintf("Lambda_%s%d%d", v, ch.digit, j),
				Slot{Block: lambdaBlock, Channel: ch.channel, Index: j - 1, Kind: KindReal})
		}
	}
}
