package lexicon

// Default 返回内置词库的一份独立副本。
func Default() *Lexicon {
	return &Lexicon{
		Intents: defaultIntents(),
		Sentiment: SentimentLexicon{
			Negative: []string{"bad", "slow", "fail", "error", "angry", "waiting", "stuck", "useless", "broken", "waste", "lost"},
			Positive: []string{"good", "fast", "great", "amazing", "thanks", "love", "easy", "smooth", "best"},
			Urgent:   []string{"urgent", "emergency", "asap", "immediately", "now", "critical", "blocked", "money stuck"},
			Markers:  []string{"urgent", "asap", "now"},
		},
		CurrencyTokens: []string{
			"usd", "sgd", "gbp", "eur", "aed", "vnd", "thb", "jpy", "aud", "cad",
			"dollar", "pound", "euro", "dong", "baht", "yen", "rupee", "inr",
		},
		// 限定词（singapore/australian/canadian）必须排在 dollar 之前。
		CurrencyAliases: []CurrencyAlias{
			{Code: "SGD", Matches: []string{"singapore", "sgd"}},
			{Code: "AUD", Matches: []string{"australian", "aud"}},
			{Code: "CAD", Matches: []string{"canadian", "cad"}},
			{Code: "USD", Matches: []string{"dollar", "usd", "greenback"}},
			{Code: "GBP", Matches: []string{"pound", "gbp", "sterling"}},
			{Code: "EUR", Matches: []string{"euro", "eur"}},
			{Code: "AED", Matches: []string{"dirham", "aed"}},
			{Code: "VND", Matches: []string{"dong", "vnd"}},
			{Code: "JPY", Matches: []string{"yen", "jpy"}},
			{Code: "THB", Matches: []string{"baht", "thb"}},
			{Code: "INR", Matches: []string{"rupee", "inr"}},
		},
		Currencies: map[string]Currency{
			"USD": {Code: "USD", Name: "United States Dollar", Region: "USA", Symbol: "$", Tier: "Major"},
			"SGD": {Code: "SGD", Name: "Singapore Dollar", Region: "Singapore", Symbol: "S$", Tier: "Major"},
			"GBP": {Code: "GBP", Name: "British Pound", Region: "UK", Symbol: "£", Tier: "Major"},
			"EUR": {Code: "EUR", Name: "Euro", Region: "Eurozone", Symbol: "€", Tier: "Major"},
			"AED": {Code: "AED", Name: "UAE Dirham", Region: "UAE", Symbol: "dh", Tier: "Minor"},
			"VND": {Code: "VND", Name: "Vietnamese Dong", Region: "Vietnam", Symbol: "₫", Tier: "Exotic"},
			"THB": {Code: "THB", Name: "Thai Baht", Region: "Thailand", Symbol: "฿", Tier: "Exotic"},
			"JPY": {Code: "JPY", Name: "Japanese Yen", Region: "Japan", Symbol: "¥", Tier: "Major"},
			"AUD": {Code: "AUD", Name: "Australian Dollar", Region: "Australia", Symbol: "A$", Tier: "Major"},
			"CAD": {Code: "CAD", Name: "Canadian Dollar", Region: "Canada", Symbol: "C$", Tier: "Major"},
			"INR": {Code: "INR", Name: "Indian Rupee", Region: "India", Symbol: "₹", Tier: "Home"},
		},
		Dictionary: map[string]string{
			"ad_code": "Authorized Dealer Code. A 14-digit code assigned by the bank where you have a current account. You must register this at every customs port where you export/import.",
			"brc":     "Bank Realization Certificate. A legacy term, now largely replaced by e-FIRA and EDPMS status updates. It certifies that export proceeds have been realized.",
			"edpms":   "Export Data Processing and Monitoring System. An RBI platform where banks report export realizations. SettleX updates this automatically.",
			"idpms":   "Import Data Processing and Monitoring System. The RBI platform for tracking import remittances against Bills of Entry.",
			"fema":    "Foreign Exchange Management Act, 1999. The primary law governing FX in India. SettleX ensures all transactions comply with FEMA guidelines automatically.",
			"swift":   "Society for Worldwide Interbank Financial Telecommunication. The legacy messaging network. We bypass this using DBS Intra-Bank rails for 80% lower costs.",
			"nostro":  "An account held by an Indian bank in a foreign country (e.g., YES BANK's account with Wells Fargo US).",
			"vostro":  "An account held by a foreign bank in India (e.g., DBS Singapore's INR account in India).",
			"eefc":    "Exchange Earners' Foreign Currency Account. An account where exporters can retain 100% of their earnings in foreign currency to hedge against future payments.",
			"hs_code": "Harmonized System Code. A standardized numerical method of classifying traded products. Crucial for RoDTEP claims.",
			"opgsp":   "Online Payment Gateway Service Provider. The older regulatory framework for small value exports, now being superseded by PA-CB.",
			"pa_cb":   "Payment Aggregator - Cross Border. The new RBI master direction (2025) regulating fintechs like SettleX.",
			"kyc":     "Know Your Customer. Mandatory verification involving PAN, Aadhaar, and business registration docs.",
			"aml":     "Anti-Money Laundering. SettleX uses real-time screening against OFAC and UN lists to prevent illicit flows.",
			"neft":    "National Electronic Funds Transfer. Used for domestic INR payouts under ₹2 Lakhs.",
			"rtgs":    "Real Time Gross Settlement. Used for domestic INR payouts over ₹2 Lakhs.",
		},
		FAQ: map[string]string{
			FAQRodtep:     "RoDTEP (Remission of Duties and Taxes on Exported Products) is a scheme for exporters. Since we generate e-FIRAs in T+1 days, you can claim these benefits approx. 10 days faster than with traditional banks.",
			FAQFira:       "An e-FIRA (Foreign Inward Remittance Advice) is proof of foreign payment. We automate this via our partner banks (YES Bank/DBS) so you don't have to chase relationship managers.",
			FAQBoe:        "Bill of Entry (BoE) is required for imports. Upload it to the 'Compliance Vault', and our OCR will auto-match it with your payment within 15 minutes.",
			FAQLimit:      "Under OPGSP/PA-CB guidelines, the per-transaction limit is generally USD 10,000 equivalent for imports, though SettleX supports higher volumes via direct AD-I partnerships for specific goods.",
			FAQSecurity:   "We are ISO 27001 certified and compliant with RBI's PA-CB (Payment Aggregator - Cross Border) guidelines. Your funds are held in escrow, never in our working capital.",
			FAQOnboarding: "Getting started is paperless. You'll need your IEC, PAN, and GSTIN. Head to the 'Open Account' button to complete your Video KYC in under 10 minutes.",
			FAQSpeed:      "We move at the speed of data. Using DBS 'Golden Rail' intra-bank transfers, payments from major hubs (SG, US, UK) settle T+0 (Same Day) if booked before 2:00 PM IST. Traditional SWIFT takes T+3.",
		},
		Troubleshooting: map[string]string{
			GuidePaymentFailed: "If your payment failed, check: 1) Is the beneficiary account active? 2) Does the purpose code match the invoice? 3) Do you have sufficient balance? If all look good, raise a priority ticket.",
			GuideLoginIssue:    "Ensure you are using your registered corporate email. If you forgot your password, click 'Forgot Password' on the login screen. Accounts are locked after 5 failed attempts.",
			GuideFiraMissing:   "If you haven't received an e-FIRA after 48 hours, the funds might be held for AML review. Check your email for a 'Request for Information' (RFI) from our compliance team.",
			GuideDocRejected:   "Documents are usually rejected due to: Blurry scans, Name mismatch between Invoice and IEC, or Expired validity. Please re-upload a clear PDF.",
		},
	}
}

// defaultIntents 的声明顺序即平分时的优先顺序。
func defaultIntents() []IntentSpec {
	return []IntentSpec{
		{Name: IntentGreeting, Weight: 1, Keywords: []string{"hello", "hi", "hey", "greetings", "morning", "evening", "start", "begin"}},
		{Name: IntentGoodbye, Weight: 1, Keywords: []string{"bye", "goodbye", "see ya", "exit", "quit", "end", "close"}},
		{Name: IntentThanks, Weight: 1, Keywords: []string{"thank", "thanks", "cool", "awesome", "great", "helpful", "cheers"}},
		{Name: IntentCalculator, Weight: 2, Keywords: []string{"convert", "calculator", "how much", "change", "swap", "calculate", "exchange", "value of"}},
		{Name: IntentRateInquiry, Weight: 2, Keywords: []string{"rate", "price", "cost", "spread", "margin", "fees", "charges", "commission", "fx rate", "dollar rate"}},
		{Name: IntentComplianceFIRA, Weight: 3, Keywords: []string{"fira", "advice", "certificate", "proof", "remittance advice", "efira", "download fira"}},
		{Name: IntentComplianceRoD, Weight: 3, Keywords: []string{"rodtep", "incentive", "benefit", "claim", "duty", "drawback", "rebate", "government scheme"}},
		{Name: IntentComplianceBoE, Weight: 3, Keywords: []string{"boe", "bill of entry", "import doc", "customs", "clearance", "idpms", "entry bill"}},
		{Name: IntentOnboarding, Weight: 2, Keywords: []string{"sign up", "register", "account", "kyc", "join", "open account", "documents needed", "iec", "gstin"}},
		{Name: IntentSpeed, Weight: 1, Keywords: []string{"time", "speed", "fast", "how long", "days", "settlement", "duration", "when", "timeline"}},
		{Name: IntentSecurity, Weight: 2, Keywords: []string{"safe", "secure", "trust", "fraud", "rbi", "license", "audit", "iso", "escrow", "money safe"}},
		{Name: IntentSupport, Weight: 2, Keywords: []string{"help", "support", "contact", "human", "agent", "representative", "call", "email", "issue", "problem", "error", "ticket", "complain"}},
		{Name: IntentTroubleshoot, Weight: 2, Keywords: []string{"failed", "rejected", "declined", "stuck", "pending", "not received", "missing", "issue", "bug"}},
		{Name: IntentExplainConcept, Weight: 1, Keywords: []string{"what is", "define", "meaning", "explain", "definition", "term"}},
		{Name: IntentPersonality, Weight: 3, Keywords: []string{"who are you", "your name", "are you a bot", "are you human"}},
		{Name: IntentLimits, Weight: 2, Keywords: []string{"limit", "maximum amount", "max amount", "cap on"}},
	}
}
