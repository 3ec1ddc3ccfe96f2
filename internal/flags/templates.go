package flags

type template struct {
	summary string
	meaning string
	action  string
	reply   SuggestedReply
}

var templates = map[Category]template{
	CategoryLoveBombing: {
		summary: "Intense declarations of affection early in the conversation",
		meaning: "Overwhelming affection before trust exists is a common way to lower someone's guard.",
		action:  "Slow the pace and judge them by consistent actions over time.",
		reply:   SuggestedReply{Content: "That's kind, but I'd like to get to know you slowly.", Tone: ToneCautious},
	},
	CategoryFinancialAsk: {
		summary: "Mentions or requests money, transfers or payment methods",
		meaning: "Requests for money or payment details are the most common goal of romance scams.",
		action:  "Do not send money, gift cards or crypto. Stop and verify their identity.",
		reply:   SuggestedReply{Content: "I don't send money to people I haven't met.", Tone: ToneFirm},
	},
	CategoryOffPlatformPush: {
		summary: "Pushes to move the conversation to another app",
		meaning: "Moving off-platform removes the safety tools and reporting of the original app.",
		action:  "Stay on the current platform until you have verified who they are.",
		reply:   SuggestedReply{Content: "I'd rather keep chatting here for now.", Tone: ToneFirm},
	},
	CategoryPressureUrgency: {
		summary: "Creates urgency or pressure to act quickly",
		meaning: "Artificial urgency is used to stop you from thinking a request through.",
		action:  "Take your time. A genuine person will wait.",
		reply:   SuggestedReply{Content: "I don't make decisions under pressure. Let's talk about it later.", Tone: ToneFirm},
	},
	CategoryGuiltTripping: {
		summary: "Uses guilt to steer your behaviour",
		meaning: "Guilt is a lever to make you act against your own judgement.",
		action:  "Notice the pattern and hold your position.",
		reply:   SuggestedReply{Content: "I understand you're upset, but my answer is still no.", Tone: ToneFirm},
	},
	CategoryGaslighting: {
		summary: "Denies or rewrites things that were said",
		meaning: "Making you doubt your own memory erodes your ability to judge the situation.",
		action:  "Keep a record of the conversation and trust it.",
		reply:   SuggestedReply{Content: "I remember it differently, and I have the messages.", Tone: ToneFirm},
	},
	CategoryInconsistentStory: {
		summary: "Details of their story do not line up",
		meaning: "Changing personal details can indicate a fabricated identity.",
		action:  "Ask gentle clarifying questions and compare the answers.",
		reply:   SuggestedReply{Content: "I thought you said something different earlier. Which is it?", Tone: ToneCautious},
	},
	CategoryAvoidsVideoCall: {
		summary: "Avoids or refuses video calls",
		meaning: "Persistent excuses to avoid video are a strong sign the person is not who they claim.",
		action:  "Insist on a short video call before investing further.",
		reply:   SuggestedReply{Content: "A quick video call is important to me before we go further.", Tone: ToneFirm},
	},
	CategoryExcessiveFlattery: {
		summary: "Heavy, generic flattery",
		meaning: "Flattery that could apply to anyone is often scripted.",
		action:  "Look for specifics that show they actually listened.",
		reply:   SuggestedReply{Content: "Thanks! Tell me more about you though.", Tone: ToneNeutral},
	},
	CategoryIsolationAttempt: {
		summary: "Tries to separate you from friends or family",
		meaning: "Isolation makes you more dependent and less likely to get outside advice.",
		action:  "Talk to someone you trust about this conversation.",
		reply:   SuggestedReply{Content: "I share things with people I trust, and that won't change.", Tone: ToneFirm},
	},
	CategoryBoundaryViolation: {
		summary: "Threatens to contact people in your life",
		meaning: "Threatening to reach your family, friends or employer is coercion.",
		action:  "Block and report. Consider warning the people named.",
		reply:   SuggestedReply{Content: "Do not contact anyone I know. I'm ending this conversation.", Tone: ToneFirm},
	},
	CategoryStalkingBehavior: {
		summary: "Repeated, excessive contact attempts",
		meaning: "A very high number of unanswered call attempts is a recognised stalking pattern.",
		action:  "Block the contact, keep the records and consider reporting it.",
		reply:   SuggestedReply{Content: "Stop contacting me.", Tone: ToneFirm},
	},
	CategoryThreats: {
		summary: "Threatening language",
		meaning: "Threats are a safety concern regardless of intent.",
		action:  "Stop engaging, save evidence and contact the authorities if you feel unsafe.",
		reply:   SuggestedReply{Content: "I'm not continuing this conversation.", Tone: ToneFirm},
	},
	CategorySexualPressure: {
		summary: "Pressure for sexual content",
		meaning: "Pressure for intimate images is frequently a prelude to sextortion.",
		action:  "Do not send images. Block if the pressure continues.",
		reply:   SuggestedReply{Content: "I'm not comfortable with that.", Tone: ToneFirm},
	},
	CategoryPersonalInfoProbing: {
		summary: "Probes for sensitive personal information",
		meaning: "Addresses, account details and security answers enable fraud and identity theft.",
		action:  "Do not share identifying or financial details.",
		reply:   SuggestedReply{Content: "I keep that kind of information private.", Tone: ToneCautious},
	},
	CategorySobStory: {
		summary: "Tells a hardship story that invites rescue",
		meaning: "Hardship stories often precede a request for help or money.",
		action:  "Be sympathetic but do not offer money or favours.",
		reply:   SuggestedReply{Content: "I'm sorry you're going through that. I hope it works out.", Tone: ToneCautious},
	},
	CategoryFutureFaking: {
		summary: "Makes big future promises very early",
		meaning: "Early promises of marriage or a shared life build commitment without substance.",
		action:  "Judge the relationship by the present, not promises.",
		reply:   SuggestedReply{Content: "Let's focus on getting to know each other first.", Tone: ToneCautious},
	},
	CategoryJealousyControl: {
		summary: "Possessive or controlling language",
		meaning: "Jealousy framed as care is an early sign of controlling behaviour.",
		action:  "Keep your independence and watch whether it escalates.",
		reply:   SuggestedReply{Content: "I decide who I talk to.", Tone: ToneFirm},
	},
	CategoryIdentityEvasion: {
		summary: "Evades questions about who they are",
		meaning: "Dodging basic identity questions suggests a false profile.",
		action:  "Ask for verifiable details before continuing.",
		reply:   SuggestedReply{Content: "I'd like to know a bit more about you before we continue.", Tone: ToneCautious},
	},
	CategoryAsksReciprocalQuestions: {
		summary: "Asks questions about you",
		meaning: "Genuine interest usually shows up as questions back.",
		action:  "Keep an eye on whether the interest stays balanced.",
		reply:   SuggestedReply{Content: "Great question! What about you?", Tone: ToneFriendly},
	},
	CategoryRespectsBoundaries: {
		summary: "Respects your pace and boundaries",
		meaning: "Accepting a no without pushback is a healthy sign.",
		action:  "Keep communicating your boundaries clearly.",
		reply:   SuggestedReply{Content: "Thanks for understanding.", Tone: ToneFriendly},
	},
	CategoryConsistentStory: {
		summary: "Their story stays consistent",
		meaning: "Consistent details over time are a good sign of honesty.",
		action:  "Continue as normal.",
		reply:   SuggestedReply{Content: "I've enjoyed getting to know you.", Tone: ToneFriendly},
	},
	CategorySharesVerifiableInfo: {
		summary: "Shares information you can verify",
		meaning: "Verifiable details make a fake identity much less likely.",
		action:  "It is still reasonable to verify what they shared.",
		reply:   SuggestedReply{Content: "Thanks for sharing that.", Tone: ToneFriendly},
	},
	CategoryOffersVideoCall: {
		summary: "Offers to video call",
		meaning: "Willingness to appear on video is a strong authenticity signal.",
		action:  "Take them up on it.",
		reply:   SuggestedReply{Content: "I'd like that. When works for you?", Tone: ToneFriendly},
	},
	CategoryPatientPacing: {
		summary: "Lets the relationship develop at a natural pace",
		meaning: "Patience suggests they are not working towards a quick payoff.",
		action:  "Continue as normal.",
		reply:   SuggestedReply{Content: "I like that we're taking our time.", Tone: ToneFriendly},
	},
	CategorySharesPersonalInfo: {
		summary: "Shares details about their own life",
		meaning: "Mutual disclosure is a normal part of building trust.",
		action:  "Share at a pace that feels comfortable.",
		reply:   SuggestedReply{Content: "That's interesting, thanks for telling me.", Tone: ToneFriendly},
	},
}

var unknownTemplate = template{
	summary: "Unclassified behaviour",
	meaning: "This pattern did not fit a known category but was noted.",
	action:  "Use your judgement and take your time.",
	reply:   SuggestedReply{Content: "Let's take things slowly.", Tone: ToneNeutral},
}

func templateFor(c Category) template {
	if t, ok := templates[c]; ok {
		return t
	}
	return unknownTemplate
}
