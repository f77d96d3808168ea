package sentiment

// lexicon asigna a cada palabra en minúsculas una valencia en [-3, 3] aprox.
// Ajustado a titulares de prediction markets (política, macro, crypto y deportes).
var lexicon = map[string]float64{
	// positivas
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8, "awesome": 3.1,
	"win": 2.8, "wins": 2.7, "winner": 2.8, "victory": 2.8, "triumph": 2.9,
	"gain": 2.4, "surge": 2.0, "soar": 2.3, "rally": 1.9, "boom": 2.0,
	"rise": 1.2, "jump": 1.1, "climb": 1.0, "beat": 1.1, "record": 1.2,
	"strong": 2.3, "strength": 2.2, "robust": 1.8, "solid": 1.6, "stable": 1.2,
	"bullish": 2.4, "optimistic": 2.3, "optimism": 2.2, "confident": 2.2, "confidence": 2.0,
	"approve": 2.0, "approval": 1.9, "approved": 2.1, "pass": 1.0, "passed": 1.2,
	"success": 2.7, "successful": 2.8, "breakthrough": 2.5, "boost": 1.7, "upgrade": 1.7,
	"lead": 1.2, "leading": 1.3, "ahead": 1.1, "favorite": 2.0, "favored": 1.8,
	"support": 1.7, "endorse": 1.5, "endorsement": 1.6, "agree": 1.5, "agreement": 1.6,
	"deal": 0.9, "peace": 2.5, "ceasefire": 1.6, "recover": 1.8, "recovery": 1.9,
	"growth": 2.1, "profit": 1.9, "profitable": 2.0, "positive": 2.6, "improve": 1.9,
	"improvement": 2.0, "secure": 1.4, "safe": 1.9, "celebrate": 2.7, "happy": 2.7,
	"love": 3.2, "best": 3.2, "better": 1.9, "innovative": 1.9, "launch": 0.8,
	"adopt": 1.0, "adoption": 1.2, "landslide": 1.8, "dominant": 1.4, "momentum": 1.0,
	"hope": 1.9, "hopeful": 2.1, "promising": 2.0, "eager": 1.5, "exciting": 2.2,

	// negativas
	"bad": -2.5, "terrible": -2.1, "awful": -2.0, "horrible": -2.5, "worst": -3.1,
	"lose": -1.3, "loses": -1.4, "loss": -1.3, "lost": -1.3, "defeat": -1.6,
	"fall": -1.0, "drop": -1.1, "plunge": -2.0, "crash": -2.6, "collapse": -2.5,
	"decline": -1.4, "slump": -1.9, "sink": -1.2, "tumble": -1.7, "slide": -0.9,
	"weak": -1.9, "weakness": -1.8, "fragile": -1.4, "volatile": -1.0, "unstable": -1.7,
	"bearish": -2.3, "pessimistic": -2.2, "fear": -2.2, "panic": -2.6, "worry": -1.9,
	"worried": -1.9, "concern": -1.0, "doubt": -1.5, "uncertain": -1.2, "uncertainty": -1.3,
	"reject": -1.7, "rejected": -1.8, "veto": -1.5, "block": -1.1, "ban": -2.3,
	"fail": -2.3, "failure": -2.3, "failed": -2.2, "scandal": -2.6, "fraud": -2.8,
	"hack": -2.1, "exploit": -1.9, "breach": -2.0, "scam": -2.9, "theft": -2.4,
	"war": -2.9, "attack": -2.1, "conflict": -1.3, "crisis": -3.1, "threat": -2.4,
	"sanction": -1.4, "tariff": -0.8, "recession": -2.3, "inflation": -1.0, "default": -1.6,
	"lawsuit": -1.5, "indict": -2.0, "indictment": -2.1, "probe": -1.0, "investigation": -1.1,
	"resign": -1.2, "scrap": -1.1, "cancel": -1.2, "delay": -1.3, "downgrade": -1.8,
	"trail": -0.9, "behind": -0.8, "risk": -1.1, "danger": -2.4, "dangerous": -2.1,
	"negative": -2.7, "angry": -2.3, "hate": -2.7, "chaos": -2.6, "dead": -3.3,
	"death": -2.9, "kill": -3.7, "killed": -3.5, "disaster": -3.1, "catastrophe": -3.4,
	"poor": -2.1, "dump": -1.6, "liquidate": -1.5, "liquidation": -1.7, "bankrupt": -2.6,
	"bankruptcy": -2.7, "selloff": -1.9, "outage": -1.8, "shutdown": -1.7, "controversy": -1.7,
	"protest": -1.0, "riot": -2.6, "injury": -1.9, "injured": -2.0, "suspended": -1.6,
}

// negations invierten y amortiguan la valencia de una palabra posterior (hasta 3 tokens).
// Las contracciones llegan partidas por el tokenizer alfabético ("isn't" → "isn", "t").
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nobody": true,
	"nothing": true, "neither": true, "nor": true, "nowhere": true, "cannot": true,
	"without": true, "isn": true, "wasn": true, "aren": true, "weren": true,
	"don": true, "doesn": true, "didn": true, "wouldn": true,
	"couldn": true, "shouldn": true, "hasn": true, "haven": true, "hadn": true,
	"rarely": true, "seldom": true,
}

// boosters intensifican (+1) o suavizan (-1) la palabra que va justo detrás.
var boosters = map[string]float64{
	"very": 1, "extremely": 1, "really": 1, "highly": 1, "hugely": 1,
	"absolutely": 1, "incredibly": 1, "totally": 1, "massively": 1, "so": 1,
	"most": 1, "deeply": 1, "major": 1, "sharply": 1, "entirely": 1,
	"slightly": -1, "somewhat": -1, "barely": -1, "marginally": -1, "kinda": -1,
	"hardly": -1, "partly": -1, "little": -1, "modestly": -1,
}
