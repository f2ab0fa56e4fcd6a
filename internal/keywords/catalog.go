package keywords

// builtinCatalog backs Build when no catalog is supplied. Each name is
// chosen so that its first word is the keyword people actually write.
var builtinCatalog = []Entry{
	{Name: "Bitcoin", Symbol: "BTC", Rank: 1},
	{Name: "Ethereum", Symbol: "ETH", Rank: 2},
	{Name: "Binance Coin", Symbol: "BNB", Rank: 3},
	{Name: "Solana", Symbol: "SOL", Rank: 4},
	{Name: "Cardano", Symbol: "ADA", Rank: 5},
	{Name: "Ripple", Symbol: "XRP", Rank: 6},
	{Name: "Dogecoin", Symbol: "DOGE", Rank: 7},
	{Name: "Polkadot", Symbol: "DOT", Rank: 8},
	{Name: "Avalanche", Symbol: "AVAX", Rank: 9},
	{Name: "Chainlink", Symbol: "LINK", Rank: 10},
	{Name: "Polygon", Symbol: "MATIC", Rank: 11},
	{Name: "Litecoin", Symbol: "LTC", Rank: 12},
	{Name: "Stellar", Symbol: "XLM", Rank: 13},
	{Name: "Tron", Symbol: "TRX", Rank: 14},
	{Name: "Tether", Symbol: "USDT", Rank: 15},
	{Name: "Shiba Inu", Symbol: "SHIB", Rank: 16},
	{Name: "Uniswap", Symbol: "UNI", Rank: 17},
	{Name: "NEAR Protocol", Symbol: "NEAR", Rank: 18},
	{Name: "Monero", Symbol: "XMR", Rank: 19},
	{Name: "Cosmos", Symbol: "ATOM", Rank: 20},
}

// fallbackCatalog is served when the market-cap listing cannot be scraped.
var fallbackCatalog = []struct{ symbol, name string }{
	{"BTC", "Bitcoin"}, {"ETH", "Ethereum"}, {"USDT", "Tether"}, {"BNB", "Binance Coin"},
	{"SOL", "Solana"}, {"USDC", "USD Coin"}, {"XRP", "XRP"}, {"ADA", "Cardano"},
	{"AVAX", "Avalanche"}, {"DOGE", "Dogecoin"}, {"DOT", "Polkadot"}, {"MATIC", "Polygon"},
	{"LINK", "Chainlink"}, {"LTC", "Litecoin"}, {"SHIB", "Shiba Inu"}, {"UNI", "Uniswap"},
	{"TRX", "TRON"}, {"ATOM", "Cosmos"}, {"XMR", "Monero"}, {"ETC", "Ethereum Classic"},
	{"BCH", "Bitcoin Cash"}, {"VET", "VeChain"}, {"ALGO", "Algorand"}, {"FIL", "Filecoin"},
	{"XLM", "Stellar"}, {"MANA", "Decentraland"}, {"HBAR", "Hedera"}, {"SAND", "The Sandbox"},
	{"NEAR", "NEAR Protocol"}, {"AXS", "Axie Infinity"}, {"FTM", "Fantom"}, {"XTZ", "Tezos"},
	{"EGLD", "MultiversX"}, {"THETA", "Theta Network"}, {"EOS", "EOS"}, {"AAVE", "Aave"},
	{"ZEC", "Zcash"}, {"CAKE", "PancakeSwap"}, {"ONE", "Harmony"}, {"ENJ", "Enjin Coin"},
}

// FallbackCatalog returns the static top-40 list, ranked in order.
func FallbackCatalog() []Entry {
	out := make([]Entry, len(fallbackCatalog))
	for i, c := range fallbackCatalog {
		out[i] = Entry{Name: c.name, Symbol: c.symbol, Rank: i + 1}
	}
	return out
}
