package address

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/iota-ternary/pkg/signing"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const (
	seed1 = types.Seed("TESTVALUE9DONTUSEINPRODUCTION999999GFDDCPFIIEHBCWFN9KHRBEIHHREFCKBVGUGEDXCFHDFPAL")
	seed2 = types.Seed("TESTVALUE9DONTUSEINPRODUCTION99999DCZGVEJIZEKEGEEHYE9DOHCHLHMGAFDGEEQFUDVGGDGHRDR")
)

func trytesOf(addrs []types.Address) []trinary.Trytes {
	out := make([]trinary.Trytes, len(addrs))
	for i, a := range addrs {
		out[i] = a.Trytes
	}
	return out
}

func TestGetAddressesSecurityLevels(t *testing.T) {
	cases := []struct {
		security int
		want     []trinary.Trytes
	}{
		{1, []trinary.Trytes{
			"KNDWDEEWWFVZLISLYRABGVWZCHZNZLNSEJXFKVGAUFLL9UMZYEZMEJB9BDLAASWTHEKFREUDIUPY9ICKW",
			"CHOBTRTQWTMH9GWFWGWUODRSGPOJOIVJUNIQIBZLHSWNYPHOD9APWJBMJMGLHFZENWFKDYWHX9JDFXTAB",
			"YHTOYQUCLDHAIDILFNPITVPYSTOCFAZIUNDYTRDZCVMVGZPONPINNVPJTOAOKHHZWLOKIZPVASTOGAKPA",
		}},
		{3, []trinary.Trytes{
			"BGHTGOUKKNTYFHYUAAPSRUEVN9QQXFOGVCH9Y9BONWXUBDLSKAWEOFZIVMHXBAYVPGDZEYCKNTUJCLPAX",
			"EGMRJEUIYFUGWAIXXZCHCZUVUUYITICVHDSHCQXGFHJIVDCLTI9ZVRIKRLZQWW9CPOIXVDCBAHVGLUHI9",
			"ENPSARVJZGMMPWZTAIRHADEOZCEVIFNJWSZQHNEIRVEVI9GYMFNEOGNUYCPGPSEFCSDHUHOQKDPVGDKYC",
		}},
	}
	for _, tc := range cases {
		gen, err := NewGenerator(seed1, tc.security, false)
		require.NoError(t, err)

		addrs, err := gen.GetAddresses(0, 3, 1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, trytesOf(addrs), "security %d", tc.security)

		for i, a := range addrs {
			require.NotNil(t, a.KeyIndex)
			assert.Equal(t, i, *a.KeyIndex)
			require.NotNil(t, a.SecurityLevel)
			assert.Equal(t, tc.security, *a.SecurityLevel)
			assert.Empty(t, a.Checksum)
		}
	}
}

func TestGetAddressesDefaultSecurity(t *testing.T) {
	gen, err := NewGenerator(seed1, DefaultSecurityLevel, false)
	require.NoError(t, err)

	addrs, err := gen.GetAddresses(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t,
		trinary.Trytes("DLEIS9XU9V9T9OURAKDUSQWBQEYFGJLRPRVEWKN9SSUGIHBEIPBPEWISSAURGTQKWKWNHXGCBQTWNOGIY"),
		addrs[0].Trytes)

	addrs, err = gen.GetAddresses(10, 1, 1)
	require.NoError(t, err)
	assert.Equal(t,
		trinary.Trytes("XLXFTFBXUOOHRJDVBDBFEBDQDUKSLSOCLUYWGLAPR9FUROUHPFINIUFKYSRTFMNWKNEPDZATWXIVWJMDD"),
		addrs[0].Trytes)
}

func TestGetAddressesWithChecksum(t *testing.T) {
	gen, err := NewGenerator(seed2, DefaultSecurityLevel, true)
	require.NoError(t, err)

	addrs, err := gen.GetAddresses(0, 2, 1)
	require.NoError(t, err)
	require.Len(t, addrs, 2)

	assert.Equal(t,
		"FNKCVJPUANHNWNBAHFBTCONMCUBC9KCZ9EKREBCJAFMABCTEPLGGXDJXVGPXDCFOUCRBWFJFLEAVOEUPY"+"ADHVCBXFD",
		addrs[0].String())
	assert.Equal(t,
		"MSYILYYZLSJ99TDMGQHDOBWGHTBARCBGJZE9PIMQLTEXJXKTDREGVTPA9NDGGLQHTMGISGRAKSLYPGWMB"+"WIKQRCIOD",
		addrs[1].String())
	assert.True(t, addrs[0].IsChecksumValid())
}

func TestGetAddressesStepAndValidation(t *testing.T) {
	gen, err := NewGenerator(seed1, 1, false)
	require.NoError(t, err)

	backwards, err := gen.GetAddresses(2, 10, -1)
	require.NoError(t, err)
	assert.Equal(t, []trinary.Trytes{
		"YHTOYQUCLDHAIDILFNPITVPYSTOCFAZIUNDYTRDZCVMVGZPONPINNVPJTOAOKHHZWLOKIZPVASTOGAKPA",
		"CHOBTRTQWTMH9GWFWGWUODRSGPOJOIVJUNIQIBZLHSWNYPHOD9APWJBMJMGLHFZENWFKDYWHX9JDFXTAB",
		"KNDWDEEWWFVZLISLYRABGVWZCHZNZLNSEJXFKVGAUFLL9UMZYEZMEJB9BDLAASWTHEKFREUDIUPY9ICKW",
	}, trytesOf(backwards))

	_, err = gen.GetAddresses(-1, 1, 1)
	assert.Error(t, err)
	_, err = gen.GetAddresses(0, 0, 1)
	assert.Error(t, err)
	_, err = gen.GetAddresses(0, 1, 0)
	assert.Error(t, err)

	_, err = NewGenerator(seed1, 0, false)
	assert.Error(t, err)
}

func TestGetAddressesContextKeepsOrder(t *testing.T) {
	gen, err := NewGenerator(seed1, 1, false)
	require.NoError(t, err)

	sequential, err := gen.GetAddresses(0, 6, 1)
	require.NoError(t, err)

	var progress atomic.Int32
	parallel, err := gen.GetAddressesContext(context.Background(), 0, 6, 1, 3, func() { progress.Add(1) })
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.EqualValues(t, 6, progress.Load())
}

func TestGetAddressesContextCancelled(t *testing.T) {
	gen, err := NewGenerator(seed1, 1, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = gen.GetAddressesContext(ctx, 0, 4, 1, 2, nil)
	require.ErrorIs(t, err, context.Canceled)

	_, err = gen.GetAddressesContext(context.Background(), 0, 4, 1, 0, nil)
	assert.Error(t, err)
}

func TestIteratorRestarts(t *testing.T) {
	gen, err := NewGenerator(seed1, 1, false)
	require.NoError(t, err)

	it, err := gen.CreateIterator(1, 1)
	require.NoError(t, err)

	a, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t,
		trinary.Trytes("CHOBTRTQWTMH9GWFWGWUODRSGPOJOIVJUNIQIBZLHSWNYPHOD9APWJBMJMGLHFZENWFKDYWHX9JDFXTAB"),
		a.Trytes)
	assert.Equal(t, 2, it.Current())

	it.Reset()
	b, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, a, b)
	require.NoError(t, it.Err())
}

func TestFromDigest(t *testing.T) {
	key, err := signing.NewKeyGenerator(seed1).GetKey(0, 2)
	require.NoError(t, err)
	d, err := key.Digest()
	require.NoError(t, err)

	addr, err := FromDigest(d)
	require.NoError(t, err)
	assert.Equal(t,
		trinary.Trytes("DLEIS9XU9V9T9OURAKDUSQWBQEYFGJLRPRVEWKN9SSUGIHBEIPBPEWISSAURGTQKWKWNHXGCBQTWNOGIY"),
		addr.Trytes)
	assert.Equal(t, 0, *addr.KeyIndex)
	assert.Equal(t, 2, *addr.SecurityLevel)
}

func digestOf(t *testing.T, seed types.Seed, index, security int) types.Digest {
	t.Helper()
	key, err := signing.NewKeyGenerator(seed).GetKey(index, security)
	require.NoError(t, err)
	d, err := key.Digest()
	require.NoError(t, err)
	return d
}

func TestMultisigBuilder(t *testing.T) {
	d1 := digestOf(t, seed1, 0, 1)
	d2 := digestOf(t, seed2, 0, 1)
	assert.Equal(t,
		trinary.Trytes("FRUCOVQSRUXPIOKVMHYMRQEYIVYWSV9CPIGYXRVEUVRTLKXFFITIEVVEKDNLJTCMODIORQWQTVVWGAIEY"),
		d1.Trytes)

	b := NewMultisigBuilder()
	_, err := b.Address()
	require.ErrorIs(t, err, ErrNoDigests)

	require.NoError(t, b.AddDigest(d1))
	require.NoError(t, b.AddDigest(d2))

	addr, err := b.Address()
	require.NoError(t, err)
	assert.Equal(t,
		trinary.Trytes("IIDDGUKSAZMWUUHWXMHQGIWXYEOVJKBOERPUU9WTCGHJOVXZMBJEMIPHWANMNTRSLVBYGHEVPIFZVAOZY"),
		addr.Trytes)
	assert.Equal(t, 2, *addr.SecurityLevel)
	assert.Equal(t, []types.Digest{d1, d2}, addr.Digests)

	again, err := b.Address()
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	// Adding a digest continues from the squeezed sponge state.
	require.NoError(t, b.AddDigest(digestOf(t, seed1, 1, 1)))
	continued, err := b.Address()
	require.NoError(t, err)
	assert.Equal(t,
		trinary.Trytes("YZLVBOIWLCAYFOBBSRDCASQTBZSYISENATBJBKRXKYIJDBSLYAKTRILYR9M9CBOFVAKNSRLCBMYBDBLOY"),
		continued.Trytes)
	assert.Len(t, b.Digests(), 3)
}

func TestMultisigBuilderOrderMatters(t *testing.T) {
	d1 := digestOf(t, seed1, 0, 1)
	d2 := digestOf(t, seed2, 0, 1)

	b := NewMultisigBuilder()
	require.NoError(t, b.AddDigest(d2))
	require.NoError(t, b.AddDigest(d1))

	addr, err := b.Address()
	require.NoError(t, err)
	assert.Equal(t,
		trinary.Trytes("YXOHQXBECPTZVUOSNOSKHJBMESRKHBCHJTEGWUBIDFTBKJMCZAYPMRW9GHHB9BHABDDVDYUNAZPUQLUED"),
		addr.Trytes)
}
